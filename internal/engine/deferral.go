package engine

import (
	"github.com/roach88/exhibit/internal/event"
)

// DeferralQueue parks events a service cannot handle in its current state
// and later reposts them, oldest first, to the owning service's queue.
//
// The queue is owned by one service. Recall moves as many events as the
// owner's queue accepts; whatever does not fit stays parked, in order, for
// the next Recall.
type DeferralQueue struct {
	owner   Poster
	name    string
	buf     *ring
	observe func(kind RecordKind, ev event.Event)
}

// NewDeferralQueue creates a deferral queue for owner holding at most
// capacity events.
func NewDeferralQueue(owner Poster, capacity int) *DeferralQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &DeferralQueue{owner: owner, buf: newRing(capacity)}
}

// Defer parks ev. Fails with QUEUE_FULL if the deferral queue is saturated.
func (d *DeferralQueue) Defer(ev event.Event) error {
	if !d.buf.Push(ev) {
		name := d.name
		if name == "" {
			name = ownerName(d.owner)
		}
		return NewQueueFullError(name, "deferral", d.buf.Cap())
	}
	if d.observe != nil {
		d.observe(RecordDefer, ev)
	}
	return nil
}

// Recall reposts parked events to the owner in FIFO order. It stops at
// the first post failure and returns it; the event that failed and every
// event behind it stay parked.
func (d *DeferralQueue) Recall() (recalled int, err error) {
	for {
		ev, ok := d.buf.Peek()
		if !ok {
			return recalled, nil
		}
		if err := d.owner.Post(ev); err != nil {
			return recalled, err
		}
		d.buf.Pop()
		recalled++
		if d.observe != nil {
			d.observe(RecordRecall, ev)
		}
	}
}

// Len returns the number of parked events.
func (d *DeferralQueue) Len() int {
	return d.buf.Len()
}

// Cap returns the fixed capacity.
func (d *DeferralQueue) Cap() int {
	return d.buf.Cap()
}

// Pending copies the parked events in FIFO order.
func (d *DeferralQueue) Pending() []event.Event {
	return d.buf.Snapshot()
}

// Clear drops every parked event.
func (d *DeferralQueue) Clear() {
	d.buf.Clear()
}

func ownerName(p Poster) string {
	if h, ok := p.(Handle); ok {
		return h.Name()
	}
	return ""
}
