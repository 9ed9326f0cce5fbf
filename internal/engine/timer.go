package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/exhibit/internal/event"
)

// TimerTable is a fixed-size array of countdown timers.
//
// Every slot is bound to one responder when the table is configured; the
// binding never changes afterwards. Tick decrements every active slot and,
// for each slot that reaches zero, posts exactly one expiry event
// ({Timeout|ShortTimeout, Timer{id}}) to its responder and deactivates it.
//
// Several slots may share a responder; the responder tells them apart by
// the payload's timer id.
//
// Not safe for concurrent use. Only the scheduler loop ticks, arms and
// disarms.
type TimerTable struct {
	kind   event.Type
	slots  []timerSlot
	names  map[string]event.TimerID
	frozen bool
}

type timerSlot struct {
	name      string
	responder Poster // nil when the slot is unused
	remaining uint32
	active    bool
}

// TimerBinding describes one configured slot.
type TimerBinding struct {
	ID        event.TimerID
	Name      string
	Responder string
}

// NewTimerTable creates a table of size unused slots whose expiries carry
// the given event type (event.Timeout or event.ShortTimeout).
func NewTimerTable(kind event.Type, size int) (*TimerTable, error) {
	if kind != event.Timeout && kind != event.ShortTimeout {
		return nil, NewConfigError("timer table kind must be Timeout or ShortTimeout, got %s", kind)
	}
	if size < 1 || size > 256 {
		return nil, NewConfigError("timer table size %d out of range [1, 256]", size)
	}
	return &TimerTable{
		kind:  kind,
		slots: make([]timerSlot, size),
		names: make(map[string]event.TimerID),
	}, nil
}

// Kind returns the event type posted on expiry.
func (t *TimerTable) Kind() event.Type {
	return t.kind
}

// Size returns the number of slots.
func (t *TimerTable) Size() int {
	return len(t.slots)
}

// Bind attaches a responder to slot id under a symbolic name.
// Binding is configuration: it fails once the table is frozen.
func (t *TimerTable) Bind(name string, id event.TimerID, responder Poster) error {
	if t.frozen {
		return NewConfigError("timer %q: table is frozen", name)
	}
	if name == "" {
		return NewConfigError("timer %d: empty name", id)
	}
	if int(id) >= len(t.slots) {
		return NewConfigError("timer %q: id %d out of range [0, %d)", name, id, len(t.slots))
	}
	if responder == nil {
		return NewConfigError("timer %q: nil responder", name)
	}
	if t.slots[id].responder != nil {
		return NewConfigError("timer %q: slot %d already bound to %q", name, id, t.slots[id].name)
	}
	if _, dup := t.names[name]; dup {
		return NewConfigError("timer %q: name bound twice", name)
	}
	t.slots[id] = timerSlot{name: name, responder: responder}
	t.names[name] = id
	return nil
}

// Freeze ends configuration. Further Bind calls fail.
func (t *TimerTable) Freeze() {
	t.frozen = true
}

// Lookup returns the slot bound under name.
func (t *TimerTable) Lookup(name string) (event.TimerID, bool) {
	id, ok := t.names[name]
	return id, ok
}

func (t *TimerTable) slot(id event.TimerID) (*timerSlot, error) {
	if int(id) >= len(t.slots) {
		return nil, NewConfigError("%s timer %d out of range [0, %d)", t.kind, id, len(t.slots))
	}
	s := &t.slots[id]
	if s.responder == nil {
		return nil, NewConfigError("%s timer %d is unused", t.kind, id)
	}
	return s, nil
}

// Arm (re)starts slot id with a countdown of ticks. Re-arming an active
// slot restarts it; nothing accumulates. A zero countdown expires on the
// next tick.
func (t *TimerTable) Arm(id event.TimerID, ticks uint32) error {
	s, err := t.slot(id)
	if err != nil {
		return err
	}
	s.remaining = ticks
	s.active = true
	return nil
}

// Disarm deactivates slot id without posting anything.
func (t *TimerTable) Disarm(id event.TimerID) error {
	s, err := t.slot(id)
	if err != nil {
		return err
	}
	s.active = false
	s.remaining = 0
	return nil
}

// Active reports whether slot id is counting down.
func (t *TimerTable) Active(id event.TimerID) bool {
	if int(id) >= len(t.slots) {
		return false
	}
	return t.slots[id].active
}

// Remaining returns the ticks left on slot id and whether it is active.
func (t *TimerTable) Remaining(id event.TimerID) (uint32, bool) {
	if int(id) >= len(t.slots) {
		return 0, false
	}
	s := t.slots[id]
	return s.remaining, s.active
}

// Tick advances every active slot by one tick and posts the expiries in
// slot order. A slot deactivates before its expiry is posted, so a failed
// post is reported but never retried.
func (t *TimerTable) Tick() (fired int, err error) {
	var errs []error
	for i := range t.slots {
		s := &t.slots[i]
		if !s.active {
			continue
		}
		if s.remaining > 0 {
			s.remaining--
		}
		if s.remaining > 0 {
			continue
		}
		s.active = false
		fired++
		ev := event.Event{Type: t.kind, Param: event.Timer{ID: event.TimerID(i)}}
		if perr := s.responder.Post(ev); perr != nil {
			errs = append(errs, fmt.Errorf("timer %q: %w", s.name, perr))
		}
	}
	return fired, errors.Join(errs...)
}

// Bindings lists the bound slots in id order.
func (t *TimerTable) Bindings() []TimerBinding {
	var out []TimerBinding
	for i, s := range t.slots {
		if s.responder == nil {
			continue
		}
		b := TimerBinding{ID: event.TimerID(i), Name: s.name}
		if h, ok := s.responder.(Handle); ok {
			b.Responder = h.Name()
		}
		out = append(out, b)
	}
	return out
}

// TimerRef is a service's grip on one named slot.
type TimerRef struct {
	table *TimerTable
	id    event.TimerID
	name  string
}

// ID returns the slot id.
func (r TimerRef) ID() event.TimerID {
	return r.id
}

// Name returns the symbolic name the slot was bound under.
func (r TimerRef) Name() string {
	return r.name
}

// Arm (re)starts the slot.
func (r TimerRef) Arm(ticks uint32) error {
	if r.table == nil {
		return NewConfigError("timer %q: zero reference", r.name)
	}
	return r.table.Arm(r.id, ticks)
}

// Disarm stops the slot without posting.
func (r TimerRef) Disarm() error {
	if r.table == nil {
		return NewConfigError("timer %q: zero reference", r.name)
	}
	return r.table.Disarm(r.id)
}

// Active reports whether the slot is counting down.
func (r TimerRef) Active() bool {
	return r.table != nil && r.table.Active(r.id)
}

// Fired reports whether ev is this slot's expiry.
func (r TimerRef) Fired(ev event.Event) bool {
	if r.table == nil || ev.Type != r.table.kind {
		return false
	}
	id, ok := ev.TimerID()
	return ok && id == r.id
}
