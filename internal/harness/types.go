package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
)

// ServiceState is the final state of one service.
type ServiceState struct {
	Service string `json:"service"`
	State   string `json:"state"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// RunID is the id the trace was recorded under.
	RunID string `json:"run_id"`

	// Fingerprint identifies the configuration the scenario ran.
	Fingerprint string `json:"fingerprint"`

	// Trace contains every record of the run, read back from the store.
	Trace []engine.Record `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// States lists the final service states in registration order.
	States []ServiceState `json:"states"`

	// Indicators holds the final level of every indicator bank.
	Indicators map[string]int `json:"indicators"`

	// Timers holds the remaining ticks of every active timer, keyed by
	// name. Short timers are prefixed "short:".
	Timers map[string]uint32 `json:"timers"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(runID string) *Result {
	return &Result{
		Pass:       true,
		RunID:      runID,
		Trace:      []engine.Record{},
		Errors:     []string{},
		Indicators: make(map[string]int),
		Timers:     make(map[string]uint32),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// State returns the final state of service, or "" if it is unknown.
func (r *Result) State(service string) string {
	for _, s := range r.States {
		if s.Service == service {
			return s.State
		}
	}
	return ""
}

// traceRef names an event posted to a service, as written in trace_order:
// "service:Event" or "service:Event(n)".
type traceRef struct {
	service string
	typ     event.Type
	param   *int
}

func parseTraceRef(s string) (traceRef, error) {
	service, ev, ok := strings.Cut(s, ":")
	if !ok || service == "" || ev == "" {
		return traceRef{}, fmt.Errorf("trace ref %q: want service:Event or service:Event(n)", s)
	}
	ref := traceRef{service: service}
	name := ev
	if open := strings.IndexByte(ev, '('); open >= 0 {
		if !strings.HasSuffix(ev, ")") {
			return traceRef{}, fmt.Errorf("trace ref %q: unbalanced parenthesis", s)
		}
		v, err := strconv.Atoi(ev[open+1 : len(ev)-1])
		if err != nil {
			return traceRef{}, fmt.Errorf("trace ref %q: %w", s, err)
		}
		ref.param = &v
		name = ev[:open]
	}
	t, err := event.Parse(name)
	if err != nil {
		return traceRef{}, fmt.Errorf("trace ref %q: %w", s, err)
	}
	ref.typ = t
	return ref, nil
}

func (r traceRef) matches(rec engine.Record) bool {
	if rec.Kind != engine.RecordPost || rec.Service != r.service || rec.Event.Type != r.typ {
		return false
	}
	return r.param == nil || rec.Event.Int() == *r.param
}

func (r traceRef) String() string {
	if r.param == nil {
		return r.service + ":" + r.typ.String()
	}
	return fmt.Sprintf("%s:%s(%d)", r.service, r.typ, *r.param)
}
