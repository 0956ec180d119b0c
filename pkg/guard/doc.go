// Package guard wraps units of work in a resource gate and keeps the
// process-wide total/pass/block counters.
//
// # Usage
//
//	counters := guard.NewCounters()
//	g := guard.New(gate.New(decider), guard.WithCounters(counters))
//
//	user, err := guard.Do(ctx, g, getUserByID,
//	    func(ctx context.Context) (User, error) { return repo.Find(ctx, id) },
//	    func(ctx context.Context, _ *gate.BlockError) (User, error) { return fallbackUser, nil },
//	)
//
// Every call moves through one of two paths:
//
//	START -> ADMITTED -> RUNNING -> SUCCEEDED | FAILED
//	START -> REJECTED -> FALLBACK_RUN -> DONE
//
// total is incremented once per call on both paths, pass on the first and
// block on the second, so total == pass + block once calls have drained.
// Work errors reach the caller unchanged; blocks never do unless the
// fallback is nil.
//
// A CallSite binds a resource to its fallback for repeated use.
package guard
