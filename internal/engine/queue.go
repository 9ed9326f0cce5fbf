package engine

import "github.com/roach88/exhibit/internal/event"

// ring is a bounded FIFO of events.
//
// Service queues and deferral queues are both rings. The capacity is fixed
// at construction; Push on a full ring fails and leaves the ring untouched.
// No allocation happens after construction.
//
// Not safe for concurrent use: every ring is owned by the scheduler loop.
type ring struct {
	buf  []event.Event
	head int // index of the oldest event
	n    int // number of buffered events
}

// newRing creates an empty ring holding at most capacity events.
func newRing(capacity int) *ring {
	return &ring{buf: make([]event.Event, capacity)}
}

// Push appends an event at the back. Returns false if the ring is full.
func (r *ring) Push(e event.Event) bool {
	if r.n == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.n)%len(r.buf)] = e
	r.n++
	return true
}

// Pop removes and returns the front event.
// Returns (event.Event{}, false) if the ring is empty.
func (r *ring) Pop() (event.Event, bool) {
	if r.n == 0 {
		return event.Event{}, false
	}
	e := r.buf[r.head]
	// Clear the slot so the payload interface is not retained.
	r.buf[r.head] = event.Event{}
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return e, true
}

// Peek returns the front event without removing it.
func (r *ring) Peek() (event.Event, bool) {
	if r.n == 0 {
		return event.Event{}, false
	}
	return r.buf[r.head], true
}

// Len returns the number of buffered events.
func (r *ring) Len() int {
	return r.n
}

// Cap returns the fixed capacity.
func (r *ring) Cap() int {
	return len(r.buf)
}

// Full reports whether a Push would fail.
func (r *ring) Full() bool {
	return r.n == len(r.buf)
}

// Snapshot copies the buffered events in FIFO order.
func (r *ring) Snapshot() []event.Event {
	out := make([]event.Event, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Clear drops every buffered event.
func (r *ring) Clear() {
	for i := range r.buf {
		r.buf[i] = event.Event{}
	}
	r.head, r.n = 0, 0
}
