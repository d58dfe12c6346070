package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "propreg/pkg/domain-errors"
	"propreg/pkg/platform/sentinel"
	"propreg/pkg/requestcontext"
)

// DefaultMaxAttempts bounds how often an invocation is re-run after losing a
// commit race.
const DefaultMaxAttempts = 5

// Runtime executes invocations against a Backend. Each call to Invoke is one
// atomicity unit: all writes the body issued land together or not at all.
type Runtime struct {
	backend     Backend
	logger      *slog.Logger
	metrics     *Metrics
	publisher   CommitPublisher
	tracer      trace.Tracer
	clock       func() time.Time
	newID       func() string
	maxAttempts int
}

type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// WithPublisher forwards every committed write set to p.
func WithPublisher(p CommitPublisher) Option {
	return func(r *Runtime) {
		r.publisher = p
	}
}

// WithClock overrides the source of tx time.
func WithClock(clock func() time.Time) Option {
	return func(r *Runtime) {
		r.clock = clock
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runtime) {
		r.tracer = tracer
	}
}

// WithMaxAttempts sets the retry bound; values below 1 keep the default.
func WithMaxAttempts(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewRuntime constructs a Runtime over backend.
func NewRuntime(backend Backend, opts ...Option) *Runtime {
	r := &Runtime{
		backend:     backend,
		logger:      slog.Default(),
		tracer:      otel.Tracer("propreg/ledger"),
		clock:       time.Now,
		newID:       uuid.NewString,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs body as one invocation named fn. body receives the invocation's
// context, so its reads carry the caller's deadline and the ledger.invoke
// span. If body fails, its writes are discarded and the error is returned as
// is. If the commit loses a race with a concurrent invocation, body is run
// again from scratch against fresh state, up to the configured attempt bound.
func (r *Runtime) Invoke(ctx context.Context, fn string, body func(ctx context.Context, tx Tx) error) (err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "ledger.invoke", trace.WithAttributes(
		attribute.String("ledger.function", fn),
	))
	outcome := OutcomeError
	defer func() {
		r.metrics.observe(fn, outcome, start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "invocation aborted: context cancelled")
		}

		tx := newTxn(r.newID(), r.backend, r.clock().UTC().Truncate(time.Second))
		span.SetAttributes(
			attribute.String("ledger.tx_id", tx.id),
			attribute.Int("ledger.attempt", attempt),
		)

		if bodyErr := body(ctx, tx); bodyErr != nil {
			outcome = OutcomeRejected
			return bodyErr
		}

		writes := tx.writeSet()
		if len(writes) == 0 {
			outcome = OutcomeReadOnly
			return nil
		}

		applyErr := r.backend.Apply(ctx, tx.readSet(), writes)
		if applyErr == nil {
			outcome = OutcomeCommitted
			r.publish(ctx, CommitEvent{TxID: tx.id, Function: fn, TxTime: tx.txTime, Mutations: writes})
			return nil
		}
		if !errors.Is(applyErr, sentinel.ErrConflict) {
			return dErrors.Wrap(applyErr, dErrors.CodeInternal, "commit failed")
		}

		r.metrics.incConflict(fn)
		r.logger.DebugContext(ctx, "read set invalidated, re-running invocation",
			"request_id", requestcontext.RequestID(ctx),
			"function", fn,
			"tx_id", tx.id,
			"attempt", attempt,
		)
		if attempt >= r.maxAttempts {
			outcome = OutcomeConflict
			return dErrors.Wrap(applyErr, dErrors.CodeConflict, "too much contention, retry later")
		}
	}
}

func (r *Runtime) publish(ctx context.Context, event CommitEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "failed to publish commit event",
			"request_id", requestcontext.RequestID(ctx),
			"function", event.Function,
			"tx_id", event.TxID,
			"error", err,
		)
	}
}
