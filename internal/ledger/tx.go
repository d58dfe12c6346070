package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propreg/pkg/platform/sentinel"
)

// txn is the Tx handed to one invocation attempt. It is not safe for
// concurrent use; an invocation runs to completion on one goroutine.
type txn struct {
	id      string
	backend Backend
	txTime  time.Time

	reads  map[string]Versioned
	writes map[string]Mutation
	order  []string
}

func newTxn(id string, backend Backend, txTime time.Time) *txn {
	return &txn{
		id:      id,
		backend: backend,
		txTime:  txTime,
		reads:   make(map[string]Versioned),
		writes:  make(map[string]Mutation),
	}
}

func (t *txn) ID() string {
	return t.id
}

func (t *txn) TxTime() time.Time {
	return t.txTime
}

func (t *txn) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("get: empty key")
	}
	if m, ok := t.writes[key]; ok {
		if m.Op == OpDelete {
			return nil, sentinel.ErrNotFound
		}
		return clone(m.Value), nil
	}
	v, ok := t.reads[key]
	if !ok {
		var err error
		v, err = t.backend.Read(ctx, key)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// backends report absence through Found; tolerate either form
				v = Versioned{}
			} else {
				return nil, fmt.Errorf("read %q: %w", key, err)
			}
		}
		t.reads[key] = v
	}
	if !v.Found {
		return nil, sentinel.ErrNotFound
	}
	return clone(v.Value), nil
}

func (t *txn) Put(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("put: empty key")
	}
	if value == nil {
		value = []byte{}
	}
	t.record(Mutation{Op: OpPut, Key: key, Value: clone(value)})
	return nil
}

func (t *txn) Delete(key string) error {
	if key == "" {
		return fmt.Errorf("delete: empty key")
	}
	t.record(Mutation{Op: OpDelete, Key: key})
	return nil
}

func (t *txn) record(m Mutation) {
	if _, seen := t.writes[m.Key]; !seen {
		t.order = append(t.order, m.Key)
	}
	t.writes[m.Key] = m
}

// readSet returns the version observed for every key this attempt read.
func (t *txn) readSet() map[string]uint64 {
	out := make(map[string]uint64, len(t.reads))
	for k, v := range t.reads {
		out[k] = v.Version
	}
	return out
}

// writeSet returns the final mutation per key, in first-write order.
func (t *txn) writeSet() []Mutation {
	out := make([]Mutation, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.writes[k])
	}
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
