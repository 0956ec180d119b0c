package ratelimit

import (
	"fmt"
)

// Limiter enforces one rule's threshold using the primitive that matches
// its grade and strategy:
//
//   - qps / sliding_window: SlidingWindow over StatInterval
//   - qps / token_bucket:   TokenBucket refilled at Threshold per StatInterval
//   - concurrency:          ConcurrentLimiter
type Limiter struct {
	config Config

	window     *SlidingWindow
	bucket     *TokenBucket
	concurrent *ConcurrentLimiter
}

// NewLimiter creates a limiter for cfg. It returns an error for configs that
// fail Validate.
//
// Example:
//
//	limiter, err := NewLimiter(Config{Grade: GradeQPS, Threshold: 10})
func NewLimiter(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	l := &Limiter{config: cfg}
	switch cfg.Grade {
	case GradeQPS:
		if cfg.Strategy == StrategyTokenBucket {
			rate := float64(cfg.Threshold) / cfg.StatInterval.Seconds()
			l.bucket = NewTokenBucket(cfg.Burst, rate)
		} else {
			l.window = NewSlidingWindow(cfg.StatInterval, cfg.StatInterval/bucketsPerWindow)
		}
	case GradeConcurrency:
		l.concurrent = NewConcurrentLimiter(cfg.Threshold)
	}
	return l, nil
}

// Config returns the effective configuration, defaults included.
func (l *Limiter) Config() Config {
	return l.config
}

// Acquire checks the limit and, when allowed, records the admission.
//
// For concurrency limiters an allowed result holds a slot that must be
// returned with Release. QPS limiters need no release.
func (l *Limiter) Acquire() CheckResult {
	switch {
	case l.window != nil:
		if !l.window.TryAdd(1, l.config.Threshold) {
			return CheckResult{
				Reason:     fmt.Sprintf("qps limit exceeded (%d/%s)", l.config.Threshold, l.config.StatInterval),
				Limit:      l.config.Threshold,
				RetryAfter: l.config.StatInterval / bucketsPerWindow,
			}
		}
		return CheckResult{
			Allowed:   true,
			Limit:     l.config.Threshold,
			Remaining: l.config.Threshold - l.window.Sum(),
		}

	case l.bucket != nil:
		if !l.bucket.Take(1) {
			return CheckResult{
				Reason:     fmt.Sprintf("qps limit exceeded (%d/%s, burst %d)", l.config.Threshold, l.config.StatInterval, l.config.Burst),
				Limit:      l.config.Burst,
				RetryAfter: l.bucket.TimeUntilAvailable(1),
			}
		}
		return CheckResult{
			Allowed:   true,
			Limit:     l.config.Burst,
			Remaining: l.bucket.Remaining(),
		}

	case l.concurrent != nil:
		if !l.concurrent.Acquire() {
			return CheckResult{
				Reason: fmt.Sprintf("concurrency limit exceeded (%d)", l.config.Threshold),
				Limit:  l.config.Threshold,
			}
		}
		return CheckResult{
			Allowed:   true,
			Limit:     l.config.Threshold,
			Remaining: l.concurrent.Remaining(),
		}
	}

	return CheckResult{Allowed: true}
}

// Release returns a concurrency slot. It is a no-op for QPS limiters.
func (l *Limiter) Release() {
	if l.concurrent != nil {
		l.concurrent.Release()
	}
}

// HoldsSlots reports whether allowed Acquire calls must be paired with
// Release.
func (l *Limiter) HoldsSlots() bool {
	return l.concurrent != nil
}

// InFlight returns the slots currently held, or 0 for QPS limiters.
func (l *Limiter) InFlight() int64 {
	if l.concurrent == nil {
		return 0
	}
	return l.concurrent.Current()
}
