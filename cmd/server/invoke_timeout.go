package main

import (
	"context"
	"time"

	"propreg/internal/ledger"
	"propreg/internal/registry"
)

const defaultInvokeTimeout = 5 * time.Second

// boundedInvoker gives every invocation a deadline when the caller did not
// set one, so a stalled backend cannot hold a request open indefinitely.
type boundedInvoker struct {
	next    registry.Invoker
	timeout time.Duration
}

func newBoundedInvoker(next registry.Invoker, timeout time.Duration) *boundedInvoker {
	return &boundedInvoker{next: next, timeout: timeout}
}

func (b *boundedInvoker) Invoke(ctx context.Context, fn string, body func(ctx context.Context, tx ledger.Tx) error) error {
	timeout := b.timeout
	if timeout == 0 {
		timeout = defaultInvokeTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return b.next.Invoke(ctx, fn, body)
}
