// Package ratelimit provides the statistics primitives behind flow rules.
//
// # Overview
//
//   - SlidingWindow: counts admissions over a rolling window (QPS rules)
//   - TokenBucket: steady rate with bursts (QPS rules, token_bucket strategy)
//   - ConcurrentLimiter: counting semaphore (concurrency rules)
//
// Limiter picks the right primitive for a single rule's Config:
//
//	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
//	    Grade:     ratelimit.GradeQPS,
//	    Threshold: 10,
//	})
//	if res := limiter.Acquire(); !res.Allowed {
//	    // res.Reason == "qps limit exceeded (10/1s)"
//	}
//
// # Sliding Window
//
// The window is split into ten buckets. An admission is allowed while the
// window total is below the threshold; check and record happen atomically.
//
// # Thread Safety
//
// All types are safe for concurrent use.
package ratelimit
