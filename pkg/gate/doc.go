// Package gate provides the resource gate: the single admission point every
// guarded unit of work passes through.
//
// # Overview
//
// A resource is a named, typed piece of protected work (an inbound request
// handler, an outbound call, a plain function). Before the work runs, the
// caller enters the gate for that resource. The gate builds a load snapshot
// and asks the configured Decider whether the entry is admitted:
//
//	g := gate.New(decider)
//	h, err := g.Enter(ctx, gate.MustResource("getUserById", gate.Outbound))
//	if err != nil {
//	    var blocked *gate.BlockError
//	    if errors.As(err, &blocked) {
//	        // run the fallback
//	    }
//	    return err
//	}
//	defer h.Release()
//
// # Handles
//
// An admitted entry is represented by a Handle, which must be released
// exactly once. The first Release runs the decider's exit callback (used by
// concurrency rules to free their slot); later calls return ErrDoubleRelease
// and change nothing.
//
// # Counters
//
// The gate itself counts nothing. Call accounting lives one layer up in
// package guard.
//
// # Thread Safety
//
// Gate and Handle are safe for concurrent use. Enter performs no I/O and
// never sleeps.
package gate
