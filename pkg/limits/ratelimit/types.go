package ratelimit

import (
	"fmt"
	"time"
)

// Grade selects what a limiter measures.
type Grade string

const (
	// GradeQPS limits the number of admissions per stat interval.
	GradeQPS Grade = "qps"

	// GradeConcurrency limits the number of in-flight entries.
	GradeConcurrency Grade = "concurrency"
)

// Strategy selects the QPS algorithm.
type Strategy string

const (
	// StrategySlidingWindow admits while the count over the last stat
	// interval is below the threshold.
	StrategySlidingWindow Strategy = "sliding_window"

	// StrategyTokenBucket refills threshold tokens per stat interval and
	// allows bursts up to Burst.
	StrategyTokenBucket Strategy = "token_bucket"
)

// DefaultStatInterval is the QPS window when none is configured.
const DefaultStatInterval = time.Second

// bucketsPerWindow is the sliding window granularity.
const bucketsPerWindow = 10

// Config configures one Limiter.
type Config struct {
	// Grade is what is limited.
	Grade Grade

	// Threshold is the QPS count per StatInterval, or the concurrency cap.
	Threshold int64

	// Strategy is the QPS algorithm. Ignored for concurrency.
	Strategy Strategy

	// StatInterval is the QPS window length. Default: 1s.
	StatInterval time.Duration

	// Burst is the token bucket capacity. Default: Threshold.
	Burst int64
}

// Validate checks the config for values the limiter cannot work with.
func (c Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %d", c.Threshold)
	}
	switch c.Grade {
	case GradeQPS:
		switch c.Strategy {
		case "", StrategySlidingWindow, StrategyTokenBucket:
		default:
			return fmt.Errorf("unknown strategy %q (valid: sliding_window, token_bucket)", c.Strategy)
		}
		if c.StatInterval < 0 {
			return fmt.Errorf("stat_interval must be >= 0, got %s", c.StatInterval)
		}
		if c.Burst < 0 {
			return fmt.Errorf("burst must be >= 0, got %d", c.Burst)
		}
	case GradeConcurrency:
	default:
		return fmt.Errorf("unknown grade %q (valid: qps, concurrency)", c.Grade)
	}
	return nil
}

// withDefaults fills in zero values.
func (c Config) withDefaults() Config {
	if c.Grade == GradeQPS {
		if c.Strategy == "" {
			c.Strategy = StrategySlidingWindow
		}
		if c.StatInterval == 0 {
			c.StatInterval = DefaultStatInterval
		}
		if c.Burst == 0 {
			c.Burst = c.Threshold
		}
	}
	return c
}

// CheckResult is the outcome of Limiter.Acquire.
type CheckResult struct {
	// Allowed indicates if the entry is permitted.
	Allowed bool

	// Reason explains a rejection.
	Reason string

	// Limit is the configured threshold.
	Limit int64

	// Remaining is the capacity left after this check.
	Remaining int64

	// RetryAfter suggests how long to wait before retrying. Zero when
	// unknown or not applicable.
	RetryAfter time.Duration
}
