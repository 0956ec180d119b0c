package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/flowgate/pkg/guard"
)

// DefaultSchedule reports once per second.
const DefaultSchedule = "@every 1s"

// Source provides the counters being reported. *guard.Counters implements it.
type Source interface {
	Snapshot() guard.Snapshot
}

// Config configures a Reporter.
type Config struct {
	// Schedule is a cron expression or descriptor. Default: "@every 1s".
	Schedule string

	// Writer receives one line per tick. Default: os.Stdout. Use io.Discard
	// to only log.
	Writer io.Writer

	// Logger receives the same numbers as structured fields.
	Logger *slog.Logger
}

// Reporter periodically prints how many guarded calls started, passed and
// were blocked since the previous report.
type Reporter struct {
	source   Source
	schedule string
	writer   io.Writer
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	last    guard.Snapshot
	cron    *cron.Cron
	entry   cron.EntryID
	done    chan struct{}
	running bool
}

// New creates a reporter for source.
func New(source Source, cfg Config) *Reporter {
	r := &Reporter{
		source:   source,
		schedule: cfg.Schedule,
		writer:   cfg.Writer,
		logger:   cfg.Logger,
		now:      time.Now,
		cron:     cron.New(),
	}
	if r.schedule == "" {
		r.schedule = DefaultSchedule
	}
	if r.writer == nil {
		r.writer = os.Stdout
	}
	if r.logger == nil {
		r.logger = slog.Default().With("component", "report")
	}
	return r
}

// Tick reports the difference since the previous tick and returns it.
//
// The line format is "<unix_millis>, total:N, pass:N, block:N".
func (r *Reporter) Tick() guard.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.source.Snapshot()
	delta := current.Sub(r.last)
	r.last = current

	ts := r.now().UnixMilli()
	if _, err := fmt.Fprintf(r.writer, "%d, %s\n", ts, delta); err != nil {
		r.logger.Warn("failed to write report line", "error", err)
	}

	r.logger.Info("guard report",
		"total", delta.Total,
		"pass", delta.Pass,
		"block", delta.Block,
	)
	return delta
}

// Start schedules Tick and returns immediately. The reporter stops when ctx
// is cancelled or Stop is called.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reporter already running")
	}

	id, err := r.cron.AddFunc(r.schedule, func() { r.Tick() })
	if err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", r.schedule, err)
	}

	done := make(chan struct{})
	r.entry, r.done = id, done
	r.cron.Start()
	r.running = true
	r.logger.Info("reporter started", "schedule", r.schedule)

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-done:
		}
	}()

	return nil
}

// Stop stops the schedule and waits for a running tick to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.cron.Remove(r.entry)
	close(r.done)
	r.mu.Unlock()

	// Tick takes r.mu, so wait outside the lock.
	<-r.cron.Stop().Done()
	r.logger.Info("reporter stopped")
}

// IsRunning reports whether the schedule is active.
func (r *Reporter) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled tick, or nil if nothing is scheduled.
func (r *Reporter) NextRun() *time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
