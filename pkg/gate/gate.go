package gate

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Gate admits or rejects entries into resources by consulting a Decider.
type Gate struct {
	decider Decider
	probe   LoadProbe
	logger  *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLoadProbe replaces the default SystemLoad probe.
func WithLoadProbe(p LoadProbe) Option {
	return func(g *Gate) {
		if p != nil {
			g.probe = p
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a gate backed by decider. A nil decider admits every entry.
func New(decider Decider, opts ...Option) *Gate {
	g := &Gate{
		decider: decider,
		probe:   SystemLoad,
		logger:  slog.Default().With("component", "gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enter asks the decider whether res may be entered.
//
// On admission it returns a Handle that must be released exactly once. On
// rejection it returns a *BlockError and a nil handle. An invalid resource
// yields ErrInvalidResource.
func (g *Gate) Enter(ctx context.Context, res Resource) (*Handle, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}

	decision := Admit()
	if g.decider != nil {
		decision = g.decider.ShouldAdmit(ctx, res, g.probe.Snapshot(res))
	}

	if !decision.Admitted {
		g.logger.DebugContext(ctx, "entry blocked",
			"resource", res.Name(),
			"entry_type", res.EntryType().String(),
			"reason", decision.Reason,
		)
		return nil, &BlockError{Resource: res, Reason: decision.Reason}
	}

	return &Handle{
		id:        uuid.New(),
		res:       res,
		enteredAt: time.Now(),
		onExit:    decision.OnExit,
	}, nil
}

// Handle is one admitted, in-flight entry.
type Handle struct {
	id        uuid.UUID
	res       Resource
	enteredAt time.Time
	onExit    func()
	released  atomic.Bool
}

// ID returns the unique entry ID, useful for log correlation.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Resource returns the resource this handle was admitted into.
func (h *Handle) Resource() Resource {
	return h.res
}

// EnteredAt returns the admission time.
func (h *Handle) EnteredAt() time.Time {
	return h.enteredAt
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	return h.released.Load()
}

// Release ends the entry. The first call runs the decider's exit callback
// and returns nil. Every later call returns ErrDoubleRelease and does
// nothing else.
func (h *Handle) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return ErrDoubleRelease
	}
	if h.onExit != nil {
		h.onExit()
	}
	return nil
}
