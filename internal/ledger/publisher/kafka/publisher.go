// Package kafka publishes committed ledger write sets to a Kafka topic so
// downstream readers can follow registry state without polling the store.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"propreg/internal/ledger"
)

// Publisher implements ledger.CommitPublisher.
type Publisher struct {
	client *kgo.Client
	topic  string
}

func New(client *kgo.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish produces event keyed by its tx id and waits for the broker ack.
func (p *Publisher) Publish(ctx context.Context, event ledger.CommitEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode commit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.TxID),
		Value:   payload,
		Headers: headers(event),
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce commit event: %w", err)
	}
	return nil
}

// headers carries the invoked function and the document kinds the commit
// touched, in first-write order, so consumers can filter without decoding.
func headers(event ledger.CommitEvent) []kgo.RecordHeader {
	var kinds []string
	seen := make(map[string]struct{})
	for _, m := range event.Mutations {
		kind, _, err := ledger.SplitCompositeKey(m.Key)
		if err != nil {
			continue
		}
		if _, ok := seen[kind]; ok {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	return []kgo.RecordHeader{
		{Key: "function", Value: []byte(event.Function)},
		{Key: "kinds", Value: []byte(strings.Join(kinds, ","))},
	}
}

// EnsureTopic creates topic if the cluster does not have it yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicas int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, replicas, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
