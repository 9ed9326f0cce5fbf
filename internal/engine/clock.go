package engine

import "sync/atomic"

// Clock stamps every post, dispatch and expiry with a strictly increasing
// sequence number, and counts main-table ticks.
//
// The sequence number orders trace records; it is never derived from wall
// time, so a replayed scenario produces the same numbers.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The scheduler's single-loop design means only one goroutine calls Next().
type Clock struct {
	seq  atomic.Int64
	tick atomic.Uint64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Advance records one main-table tick and returns the new tick count.
func (c *Clock) Advance() uint64 {
	return c.tick.Add(1)
}

// Ticks returns the number of main-table ticks seen so far.
func (c *Clock) Ticks() uint64 {
	return c.tick.Load()
}
