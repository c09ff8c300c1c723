package runtime

import "sync/atomic"

// Clock is the monotonic logical clock stamping every journaled record.
//
// All journal rows carry a strictly increasing seq number from this
// clock. This ensures:
//   - Deterministic ordering (no wall-clock race conditions)
//   - Replay produces identical order
//   - Causal relationships are explicit
//
// The logical clock is unrelated to operation time: op_time is opaque
// caller data the scheduler evaluates eligibility against.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the runtime's single-writer design means only one goroutine
// typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when resuming from an existing journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
