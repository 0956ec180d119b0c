package gate

import (
	"context"
	"runtime"
	"time"
)

// LoadSnapshot is the system state handed to the decider for one entry.
type LoadSnapshot struct {
	// At is when the snapshot was taken.
	At time.Time

	// Goroutines is the number of live goroutines at that moment.
	Goroutines int
}

// LoadProbe builds the load snapshot for an entry.
type LoadProbe interface {
	Snapshot(res Resource) LoadSnapshot
}

// LoadProbeFunc adapts a function to LoadProbe.
type LoadProbeFunc func(res Resource) LoadSnapshot

// Snapshot calls f(res).
func (f LoadProbeFunc) Snapshot(res Resource) LoadSnapshot {
	return f(res)
}

// SystemLoad is the default probe. It records the current time and the
// goroutine count.
var SystemLoad LoadProbe = LoadProbeFunc(func(Resource) LoadSnapshot {
	return LoadSnapshot{
		At:         time.Now(),
		Goroutines: runtime.NumGoroutine(),
	}
})

// Decision is the decider's verdict on a single entry.
type Decision struct {
	// Admitted is true when the entry may proceed.
	Admitted bool

	// Reason explains a rejection. Ignored when Admitted is true.
	Reason string

	// OnExit, if set on an admitting decision, runs once when the
	// resulting handle is released.
	OnExit func()
}

// Admit returns an admitting decision.
func Admit() Decision {
	return Decision{Admitted: true}
}

// AdmitWithExit returns an admitting decision whose onExit callback runs
// when the handle is released.
func AdmitWithExit(onExit func()) Decision {
	return Decision{Admitted: true, OnExit: onExit}
}

// Reject returns a rejecting decision with the given reason.
func Reject(reason string) Decision {
	return Decision{Reason: reason}
}

// Decider decides whether an entry into a resource is admitted.
//
// Implementations must be safe for concurrent use and must not block on
// I/O. A decider may keep its own statistics (windows, in-flight counts);
// the gate does not.
type Decider interface {
	ShouldAdmit(ctx context.Context, res Resource, load LoadSnapshot) Decision
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, res Resource, load LoadSnapshot) Decision

// ShouldAdmit calls f.
func (f DeciderFunc) ShouldAdmit(ctx context.Context, res Resource, load LoadSnapshot) Decision {
	return f(ctx, res, load)
}
