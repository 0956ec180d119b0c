package ratelimit

import (
	"sync/atomic"
)

// ConcurrentLimiter caps the number of in-flight entries.
//
// It is a counting semaphore built on an atomic counter:
//
//  1. Increment the counter
//  2. If the result exceeds the limit, decrement and reject
//  3. Otherwise admit; the caller must Release when done
//
// # Thread Safety
//
// ConcurrentLimiter is lock-free and safe for concurrent use.
type ConcurrentLimiter struct {
	limit   int64
	current atomic.Int64
}

// NewConcurrentLimiter creates a limiter that admits up to limit entries
// at once.
//
// Example:
//
//	limiter := NewConcurrentLimiter(5)
//	if limiter.Acquire() {
//	    defer limiter.Release()
//	    // run the entry
//	}
func NewConcurrentLimiter(limit int64) *ConcurrentLimiter {
	return &ConcurrentLimiter{limit: limit}
}

// Acquire takes a slot and reports whether it succeeded. A successful
// Acquire must be paired with exactly one Release.
func (cl *ConcurrentLimiter) Acquire() bool {
	if cl.current.Add(1) > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

// Release returns a slot taken by Acquire.
func (cl *ConcurrentLimiter) Release() {
	cl.current.Add(-1)
}

// Current returns the number of slots in use.
func (cl *ConcurrentLimiter) Current() int64 {
	return cl.current.Load()
}

// Limit returns the configured limit.
func (cl *ConcurrentLimiter) Limit() int64 {
	return cl.limit
}

// Remaining returns the number of free slots.
func (cl *ConcurrentLimiter) Remaining() int64 {
	remaining := cl.limit - cl.current.Load()
	if remaining < 0 {
		return 0
	}
	return remaining
}
