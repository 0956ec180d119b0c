package guard

import (
	"fmt"
	"sync/atomic"
)

// Counters holds the total, pass and block call counts. The counts only
// grow; there is no reset. A zero Counters is ready to use.
type Counters struct {
	total atomic.Int64
	pass  atomic.Int64
	block atomic.Int64
}

// NewCounters returns a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// Total returns the number of completed guarded calls.
func (c *Counters) Total() int64 { return c.total.Load() }

// Pass returns the number of admitted calls.
func (c *Counters) Pass() int64 { return c.pass.Load() }

// Block returns the number of rejected calls.
func (c *Counters) Block() int64 { return c.block.Load() }

// Snapshot reads all three counters. The reads are individually atomic but
// not taken at one instant, so under load a snapshot may count a call in
// pass or block before it shows up in total.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Total: c.total.Load(),
		Pass:  c.pass.Load(),
		Block: c.block.Load(),
	}
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Total int64 `json:"total"`
	Pass  int64 `json:"pass"`
	Block int64 `json:"block"`
}

// Sub returns the per-field difference s - prev.
func (s Snapshot) Sub(prev Snapshot) Snapshot {
	return Snapshot{
		Total: s.Total - prev.Total,
		Pass:  s.Pass - prev.Pass,
		Block: s.Block - prev.Block,
	}
}

// String formats the snapshot as "total:N, pass:N, block:N".
func (s Snapshot) String() string {
	return fmt.Sprintf("total:%d, pass:%d, block:%d", s.Total, s.Pass, s.Block)
}
