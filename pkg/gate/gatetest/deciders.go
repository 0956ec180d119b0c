// Package gatetest provides deciders for testing code built on package gate.
package gatetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"mercator-hq/flowgate/pkg/gate"
)

// AlwaysAdmit returns a decider that admits every entry.
func AlwaysAdmit() gate.Decider {
	return gate.DeciderFunc(func(context.Context, gate.Resource, gate.LoadSnapshot) gate.Decision {
		return gate.Admit()
	})
}

// AlwaysReject returns a decider that rejects every entry with reason.
func AlwaysReject(reason string) gate.Decider {
	return gate.DeciderFunc(func(context.Context, gate.Resource, gate.LoadSnapshot) gate.Decision {
		return gate.Reject(reason)
	})
}

// EveryNth rejects every nth entry per resource name (the nth, 2nth, ...)
// and admits the rest.
type EveryNth struct {
	n      int64
	mu     sync.Mutex
	counts map[string]int64
}

// RejectEveryNth returns an EveryNth decider. n must be positive.
func RejectEveryNth(n int) *EveryNth {
	if n <= 0 {
		panic(fmt.Sprintf("gatetest: RejectEveryNth(%d): n must be positive", n))
	}
	return &EveryNth{n: int64(n), counts: make(map[string]int64)}
}

// ShouldAdmit implements gate.Decider.
func (d *EveryNth) ShouldAdmit(_ context.Context, res gate.Resource, _ gate.LoadSnapshot) gate.Decision {
	d.mu.Lock()
	d.counts[res.Name()]++
	count := d.counts[res.Name()]
	d.mu.Unlock()

	if count%d.n == 0 {
		return gate.Reject(fmt.Sprintf("call %d rejected (every %d)", count, d.n))
	}
	return gate.Admit()
}

// Recorder wraps a decider and counts what passes through it.
type Recorder struct {
	inner gate.Decider

	calls    atomic.Int64
	admitted atomic.Int64
	rejected atomic.Int64
	exits    atomic.Int64

	mu        sync.Mutex
	resources []gate.Resource
	loads     []gate.LoadSnapshot
}

// NewRecorder wraps inner. A nil inner admits everything.
func NewRecorder(inner gate.Decider) *Recorder {
	if inner == nil {
		inner = AlwaysAdmit()
	}
	return &Recorder{inner: inner}
}

// ShouldAdmit implements gate.Decider.
func (r *Recorder) ShouldAdmit(ctx context.Context, res gate.Resource, load gate.LoadSnapshot) gate.Decision {
	r.calls.Add(1)
	r.mu.Lock()
	r.resources = append(r.resources, res)
	r.loads = append(r.loads, load)
	r.mu.Unlock()

	d := r.inner.ShouldAdmit(ctx, res, load)
	if !d.Admitted {
		r.rejected.Add(1)
		return d
	}

	r.admitted.Add(1)
	innerExit := d.OnExit
	d.OnExit = func() {
		r.exits.Add(1)
		if innerExit != nil {
			innerExit()
		}
	}
	return d
}

// Calls returns how many times the decider was consulted.
func (r *Recorder) Calls() int64 { return r.calls.Load() }

// Admitted returns the number of admitting decisions.
func (r *Recorder) Admitted() int64 { return r.admitted.Load() }

// Rejected returns the number of rejecting decisions.
func (r *Recorder) Rejected() int64 { return r.rejected.Load() }

// Exits returns how many admitted handles have been released.
func (r *Recorder) Exits() int64 { return r.exits.Load() }

// InFlight returns admitted entries that have not been released yet.
func (r *Recorder) InFlight() int64 { return r.admitted.Load() - r.exits.Load() }

// Resources returns the resources seen, in call order.
func (r *Recorder) Resources() []gate.Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gate.Resource, len(r.resources))
	copy(out, r.resources)
	return out
}

// Loads returns the load snapshots seen, in call order.
func (r *Recorder) Loads() []gate.LoadSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gate.LoadSnapshot, len(r.loads))
	copy(out, r.loads)
	return out
}
