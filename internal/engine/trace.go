package engine

import (
	"fmt"

	"github.com/roach88/exhibit/internal/event"
)

// RecordKind identifies what happened to an event.
type RecordKind string

const (
	// RecordPost is an event accepted into a service queue.
	RecordPost RecordKind = "post"
	// RecordDrop is an event rejected by a full queue.
	RecordDrop RecordKind = "drop"
	// RecordDispatch is an event handed to a service's run function.
	RecordDispatch RecordKind = "dispatch"
	// RecordDefer is an event parked in a deferral queue.
	RecordDefer RecordKind = "defer"
	// RecordRecall is a parked event reposted to its owner.
	RecordRecall RecordKind = "recall"
	// RecordError is an Error status returned by a run function.
	RecordError RecordKind = "error"
)

// Record is one entry of the scheduler trace.
//
// Seq is strictly increasing within a run. Tick is the number of main-table
// ticks elapsed when the record was made. Dispatch records are made after
// the run function returns and carry the resulting state. Source names who
// posted: a service name, "checker:<name>", "timer", "short-timer", "init"
// or "external".
type Record struct {
	Seq     int64
	Tick    uint64
	Kind    RecordKind
	Service string
	Source  string
	Event   event.Event
	State   string
}

// String renders the record in the one-line trace format.
func (r Record) String() string {
	s := fmt.Sprintf("%06d t=%d %-8s %-18s %s", r.Seq, r.Tick, r.Kind, r.Service, r.Event)
	if r.Source != "" {
		s += " from=" + r.Source
	}
	if r.State != "" {
		s += " state=" + r.State
	}
	return s
}

// Observer receives every trace record, synchronously, on the scheduler
// loop. Observers must not post events or drive the scheduler.
type Observer interface {
	Observe(rec Record)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(rec Record)

// Observe calls f(rec).
func (f ObserverFunc) Observe(rec Record) {
	f(rec)
}

// TraceBuffer is an Observer that keeps every record in memory.
type TraceBuffer struct {
	records []Record
}

// Observe appends rec.
func (b *TraceBuffer) Observe(rec Record) {
	b.records = append(b.records, rec)
}

// Records returns the collected records.
func (b *TraceBuffer) Records() []Record {
	return b.records
}

// Reset drops every collected record.
func (b *TraceBuffer) Reset() {
	b.records = nil
}
