package guard

import (
	"context"
	"errors"
	"time"

	"mercator-hq/flowgate/pkg/gate"
)

// ErrWorkPanicked is reported to observers when the guarded work (or an
// Admitted observer) panics.
// The panic itself is re-raised to the caller unchanged.
var ErrWorkPanicked = errors.New("guarded work panicked")

// Outcome is the terminal state of a guarded call.
type Outcome int

const (
	// OutcomeSucceeded: admitted, work returned without error.
	OutcomeSucceeded Outcome = iota

	// OutcomeFailed: admitted, work returned an error or panicked.
	OutcomeFailed

	// OutcomeBlocked: rejected, fallback ran (or the block was surfaced).
	OutcomeBlocked
)

// String returns "succeeded", "failed" or "blocked".
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Observer is notified about guarded calls. Observers run on the caller's
// goroutine and must be fast and safe for concurrent use.
type Observer interface {
	// Admitted is called after the gate admits the call, before the work runs.
	Admitted(ctx context.Context, res gate.Resource)

	// Completed is called exactly once per call after its handle (if any)
	// has been released. err is the work error, ErrWorkPanicked, or the
	// *gate.BlockError for blocked calls.
	Completed(ctx context.Context, res gate.Resource, outcome Outcome, err error, elapsed time.Duration)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnAdmitted  func(ctx context.Context, res gate.Resource)
	OnCompleted func(ctx context.Context, res gate.Resource, outcome Outcome, err error, elapsed time.Duration)
}

// Admitted implements Observer.
func (o ObserverFuncs) Admitted(ctx context.Context, res gate.Resource) {
	if o.OnAdmitted != nil {
		o.OnAdmitted(ctx, res)
	}
}

// Completed implements Observer.
func (o ObserverFuncs) Completed(ctx context.Context, res gate.Resource, outcome Outcome, err error, elapsed time.Duration) {
	if o.OnCompleted != nil {
		o.OnCompleted(ctx, res, outcome, err, elapsed)
	}
}
