// Package testutil holds deterministic stand-ins for wall time, run ids
// and logging.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a WallClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// WallClock is a fake wall clock for tests. Every call to Now returns the
// current time and then moves it forward by a fixed step, so timestamps
// are distinct, increasing and identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type WallClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewWallClock creates a clock starting at Epoch that advances one second
// per reading.
func NewWallClock() *WallClock {
	return &WallClock{now: Epoch, step: time.Second}
}

// Now returns the current time and advances the clock by its step.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the next reading without advancing.
func (c *WallClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset returns the clock to Epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns Epoch.
func (c *WallClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
