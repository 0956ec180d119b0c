// Package report prints per-interval guard statistics.
//
// A Reporter reads a counter snapshot on a cron schedule and writes the
// change since the previous tick:
//
//	1767268800000, total:12, pass:10, block:2
//
// Usage:
//
//	r := report.New(g.Counters(), report.Config{})
//	if err := r.Start(ctx); err != nil {
//	    return err
//	}
//	defer r.Stop()
package report
