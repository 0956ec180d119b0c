package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/flowgate/pkg/gate"
)

// Guard runs work behind a gate and keeps the call counters.
type Guard struct {
	gate      *gate.Gate
	counters  *Counters
	observers []Observer
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithCounters makes the guard count into c instead of a private set.
// Several guards may share one Counters.
func WithCounters(c *Counters) Option {
	return func(g *Guard) {
		if c != nil {
			g.counters = c
		}
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) Option {
	return func(g *Guard) {
		if o != nil {
			g.observers = append(g.observers, o)
		}
	}
}

// WithTracer records every guarded call as a span.
func WithTracer(t trace.Tracer) Option {
	return func(g *Guard) {
		if t != nil {
			g.tracer = t
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a guard in front of gt.
func New(gt *gate.Gate, opts ...Option) *Guard {
	if gt == nil {
		gt = gate.New(nil)
	}
	g := &Guard{
		gate:     gt,
		counters: NewCounters(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		logger:   slog.Default().With("component", "guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Counters returns the counters this guard writes to.
func (g *Guard) Counters() *Counters {
	return g.counters
}

// Gate returns the underlying gate.
func (g *Guard) Gate() *gate.Gate {
	return g.gate
}

// Do runs work inside the gate for res.
//
// If the gate admits the call, pass is incremented, work runs, the handle is
// released and work's result and error are returned unchanged. If the gate
// rejects it, block is incremented and fallback's result is returned; with a
// nil fallback the *gate.BlockError is returned instead. total is
// incremented exactly once in both cases, after the handle is released.
//
// If work panics, the handle is still released and total counted before the
// panic continues up the stack.
//
// An invalid resource returns gate.ErrInvalidResource without touching the
// counters.
func Do[T any](
	ctx context.Context,
	g *Guard,
	res gate.Resource,
	work func(ctx context.Context) (T, error),
	fallback func(ctx context.Context, blocked *gate.BlockError) (T, error),
) (result T, err error) {
	if verr := res.Validate(); verr != nil {
		return result, verr
	}

	start := time.Now()
	ctx, span := g.startSpan(ctx, res)

	outcome := OutcomeSucceeded
	var reported error
	defer func() {
		g.counters.total.Add(1)
		g.complete(ctx, span, res, outcome, reported, time.Since(start))
	}()

	h, enterErr := g.gate.Enter(ctx, res)
	if enterErr != nil {
		var blocked *gate.BlockError
		if !errors.As(enterErr, &blocked) {
			blocked = &gate.BlockError{Resource: res, Reason: enterErr.Error()}
		}
		g.counters.block.Add(1)
		outcome, reported = OutcomeBlocked, blocked

		if fallback == nil {
			return result, blocked
		}
		return fallback(ctx, blocked)
	}

	defer func() {
		if rerr := h.Release(); rerr != nil {
			g.logger.WarnContext(ctx, "handle release failed",
				"resource", res.Name(),
				"entry_id", h.ID().String(),
				"error", rerr,
			)
		}
	}()

	finished := false
	defer func() {
		if !finished {
			outcome, reported = OutcomeFailed, ErrWorkPanicked
		}
	}()

	g.counters.pass.Add(1)
	for _, o := range g.observers {
		o.Admitted(ctx, res)
	}

	result, err = work(ctx)
	finished = true

	if err != nil {
		outcome, reported = OutcomeFailed, err
		g.logger.DebugContext(ctx, "guarded work failed",
			"resource", res.Name(),
			"entry_id", h.ID().String(),
			"error", err,
		)
	}
	return result, err
}

// Run is Do for work that produces no value.
func Run(
	ctx context.Context,
	g *Guard,
	res gate.Resource,
	work func(ctx context.Context) error,
	fallback func(ctx context.Context, blocked *gate.BlockError) error,
) error {
	var fb func(context.Context, *gate.BlockError) (struct{}, error)
	if fallback != nil {
		fb = func(ctx context.Context, blocked *gate.BlockError) (struct{}, error) {
			return struct{}{}, fallback(ctx, blocked)
		}
	}
	_, err := Do(ctx, g, res, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	}, fb)
	return err
}

func (g *Guard) complete(ctx context.Context, span trace.Span, res gate.Resource, outcome Outcome, err error, elapsed time.Duration) {
	endSpan(span, outcome, err)
	for _, o := range g.observers {
		o.Completed(ctx, res, outcome, err, elapsed)
	}
}
