package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propreg/internal/ledger"
	"propreg/internal/registry"
	dErrors "propreg/pkg/domain-errors"
)

type deadlineRecorder struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineRecorder) Invoke(ctx context.Context, _ string, _ func(ctx context.Context, tx ledger.Tx) error) error {
	d.deadline, d.ok = ctx.Deadline()
	return nil
}

// stallingBackend blocks every read until its context ends.
type stallingBackend struct {
	sawDeadline atomic.Bool
}

func (b *stallingBackend) Read(ctx context.Context, _ string) (ledger.Versioned, error) {
	_, ok := ctx.Deadline()
	b.sawDeadline.Store(ok)
	select {
	case <-ctx.Done():
		return ledger.Versioned{}, ctx.Err()
	case <-time.After(2 * time.Second):
		return ledger.Versioned{}, nil
	}
}

func (b *stallingBackend) Apply(context.Context, map[string]uint64, []ledger.Mutation) error {
	return nil
}

func TestBoundedInvoker(t *testing.T) {
	t.Run("adds a deadline", func(t *testing.T) {
		rec := &deadlineRecorder{}
		before := time.Now()
		require.NoError(t, newBoundedInvoker(rec, time.Second).Invoke(context.Background(), "getUser", nil))
		require.True(t, rec.ok)
		assert.WithinDuration(t, before.Add(time.Second), rec.deadline, 100*time.Millisecond)
	})

	t.Run("keeps the caller's deadline", func(t *testing.T) {
		rec := &deadlineRecorder{}
		want := time.Now().Add(time.Hour)
		ctx, cancel := context.WithDeadline(context.Background(), want)
		defer cancel()
		require.NoError(t, newBoundedInvoker(rec, time.Second).Invoke(ctx, "getUser", nil))
		assert.Equal(t, want, rec.deadline)
	})

	t.Run("bounds reads issued by the operation", func(t *testing.T) {
		backend := &stallingBackend{}
		reg := registry.New(newBoundedInvoker(ledger.NewRuntime(backend), 50*time.Millisecond))

		start := time.Now()
		_, err := reg.GetUser(context.Background(), "alice", "111")

		assert.Less(t, time.Since(start), time.Second)
		assert.True(t, backend.sawDeadline.Load())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	})
}
