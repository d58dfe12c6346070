// Package publisher holds CommitPublisher decorators shared by the concrete
// publishers.
package publisher

import (
	"context"
	"errors"
	"log/slog"

	"propreg/internal/ledger"
	"propreg/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the breaker is refusing publishes.
var ErrCircuitOpen = errors.New("commit publisher circuit open")

// Guarded stops calling a failing publisher until it recovers. Events
// offered while the circuit is open are dropped; the ledger state they
// describe is already committed.
type Guarded struct {
	next    ledger.CommitPublisher
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next ledger.CommitPublisher, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Publish(ctx context.Context, event ledger.CommitEvent) error {
	if !g.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := g.next.Publish(ctx, event); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.ErrorContext(ctx, "commit publisher circuit opened",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "commit publisher circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}
