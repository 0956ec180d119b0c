package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow counts events over a rolling time window.
//
// The window is split into fixed-size buckets held in a ring. A bucket is
// addressed by the time it covers; when the ring wraps onto a bucket from an
// earlier cycle, that bucket is reset before use. Sum only includes buckets
// whose start lies inside the window, so stale buckets never leak into the
// count even if nothing has been written for a long time.
//
// # Thread Safety
//
// SlidingWindow is safe for concurrent use.
type SlidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	now        func() time.Time
	mu         sync.Mutex
}

// bucket is one slice of the window. start is the bucket's start time in
// Unix nanoseconds; zero means unused.
type bucket struct {
	start int64
	value int64
}

// NewSlidingWindow creates a window of the given length split into buckets
// of bucketSize. A 1s window with 100ms buckets uses 10 buckets.
//
// Example:
//
//	// 1-second window with 100ms buckets
//	sw := NewSlidingWindow(time.Second, 100*time.Millisecond)
func NewSlidingWindow(window time.Duration, bucketSize time.Duration) *SlidingWindow {
	if bucketSize <= 0 || bucketSize > window {
		bucketSize = window
	}
	numBuckets := int(window / bucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}

	return &SlidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, numBuckets),
		now:        time.Now,
	}
}

// Window returns the window length.
func (sw *SlidingWindow) Window() time.Duration {
	return sw.window
}

// Add adds value to the current bucket.
func (sw *SlidingWindow) Add(value int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.currentLocked(sw.now()).value += value
}

// Sum returns the total across the window.
func (sw *SlidingWindow) Sum() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	return sw.sumLocked(sw.now())
}

// TryAdd adds value only if the window total would stay at or below limit.
// It reports whether the value was added. Check and add happen under one
// lock, so concurrent callers cannot overshoot the limit.
func (sw *SlidingWindow) TryAdd(value, limit int64) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	if sw.sumLocked(now)+value > limit {
		return false
	}
	sw.currentLocked(now).value += value
	return true
}

// Reset clears all buckets.
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for i := range sw.buckets {
		sw.buckets[i] = bucket{}
	}
}

// currentLocked returns the bucket covering now, recycling it if it still
// holds data from an earlier cycle of the ring. Caller must hold mu.
func (sw *SlidingWindow) currentLocked(now time.Time) *bucket {
	ts := now.UnixNano()
	size := int64(sw.bucketSize)
	start := ts - ts%size
	idx := (ts / size) % int64(len(sw.buckets))

	b := &sw.buckets[idx]
	if b.start != start {
		b.start = start
		b.value = 0
	}
	return b
}

// sumLocked adds up buckets that started inside the window. Caller must
// hold mu.
func (sw *SlidingWindow) sumLocked(now time.Time) int64 {
	cutoff := now.UnixNano() - int64(sw.window)

	var sum int64
	for i := range sw.buckets {
		if sw.buckets[i].start != 0 && sw.buckets[i].start > cutoff {
			sum += sw.buckets[i].value
		}
	}
	return sum
}
