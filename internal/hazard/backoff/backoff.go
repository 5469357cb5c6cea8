// Package backoff implements bounded exponential backoff for CAS retry
// loops.
//
// Lock-free retry loops that hammer a contended word with back-to-back CAS
// attempts mostly generate cache-line traffic. Yielding for an
// exponentially growing, bounded number of scheduler slices after each
// failure lets the winner finish and drains the contention without ever
// blocking the caller.
package backoff

import "runtime"

// DefaultLimit caps the yield count of a single Wait.
const DefaultLimit = 32

// Backoff is the per-loop backoff state. The zero value is ready to use
// with DefaultLimit.
//
// Not safe for concurrent use; each retry loop keeps its own.
type Backoff struct {
	cur   int
	limit int
}

// New creates a Backoff capped at limit yields per Wait. Non-positive
// limits select DefaultLimit.
func New(limit int) *Backoff {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Backoff{limit: limit}
}

// Wait yields the processor cur times and doubles cur up to the cap.
// Bounded, so callers stay lock-free.
func (b *Backoff) Wait() {
	if b.limit == 0 {
		b.limit = DefaultLimit
	}
	if b.cur == 0 {
		b.cur = 1
	}
	for i := 0; i < b.cur; i++ {
		runtime.Gosched()
	}
	if b.cur < b.limit {
		b.cur <<= 1
	}
}

// Reset returns the backoff to its initial step. Called after a successful
// operation so the next contention episode starts gently.
func (b *Backoff) Reset() {
	b.cur = 0
}
