package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []engine.Record // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, rec := range e.Trace {
			if rec.Kind == engine.RecordPost {
				fmt.Fprintf(&buf, "  %s\n", rec)
			}
		}
	}

	return buf.String()
}

// matcher selects trace records for trace_contains and trace_count.
type matcher struct {
	kind    engine.RecordKind
	service string
	typ     event.Type
	param   *int
}

func newMatcher(a Assertion) (matcher, error) {
	m := matcher{kind: engine.RecordPost, service: a.Service, param: a.Param}
	if a.Kind != "" {
		k, err := parseKind(a.Kind)
		if err != nil {
			return m, err
		}
		m.kind = k
	}
	t, err := event.Parse(a.Event)
	if err != nil {
		return m, err
	}
	m.typ = t
	return m, nil
}

func (m matcher) matches(rec engine.Record) bool {
	if rec.Kind != m.kind || rec.Service != m.service || rec.Event.Type != m.typ {
		return false
	}
	return m.param == nil || rec.Event.Int() == *m.param
}

func (m matcher) String() string {
	s := fmt.Sprintf("%s %s to %s", m.kind, m.typ, m.service)
	if m.param != nil {
		s = fmt.Sprintf("%s %s(%d) to %s", m.kind, m.typ, *m.param, m.service)
	}
	return s
}

// assertTraceContains checks if the trace contains a record matching the
// assertion's service, event and kind.
func assertTraceContains(trace []engine.Record, assertion Assertion) error {
	m, err := newMatcher(assertion)
	if err != nil {
		return err
	}
	for _, rec := range trace {
		if m.matches(rec) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: m.String(),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if posts appear in the specified order.
// They don't need to be consecutive; each is matched after the previous one.
func assertTraceOrder(trace []engine.Record, assertion Assertion) error {
	refs := make([]traceRef, len(assertion.Events))
	for i, e := range assertion.Events {
		ref, err := parseTraceRef(e)
		if err != nil {
			return err
		}
		refs[i] = ref
	}

	pos := 0
	for i, ref := range refs {
		found := false
		for ; pos < len(trace); pos++ {
			if ref.matches(trace[pos]) {
				found = true
				pos++
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing post: %s", ref)
			if i > 0 {
				actual = fmt.Sprintf("%s not posted after %s", ref, refs[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("posts in order: %v", assertion.Events),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the event appears exactly the specified number
// of times.
func assertTraceCount(trace []engine.Record, assertion Assertion) error {
	m, err := newMatcher(assertion)
	if err != nil {
		return err
	}
	count := 0
	for _, rec := range trace {
		if m.matches(rec) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, m),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks the state a service ended in.
func assertFinalState(result *Result, assertion Assertion) error {
	for _, s := range result.States {
		if s.Service != assertion.Service {
			continue
		}
		if s.State != assertion.State {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s in state %s", assertion.Service, assertion.State),
				Actual:   fmt.Sprintf("%s in state %s", s.Service, s.State),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%s in state %s", assertion.Service, assertion.State),
		Actual:   fmt.Sprintf("no service %q", assertion.Service),
	}
}

// assertIndicator checks the level shown by an indicator bank.
func assertIndicator(result *Result, assertion Assertion) error {
	b, err := hw.ParseBank(assertion.Bank)
	if err != nil {
		return err
	}
	got := result.Indicators[b.String()]
	if got != *assertion.Level {
		return &AssertionError{
			Type:     AssertIndicator,
			Expected: fmt.Sprintf("%s at level %d", b, *assertion.Level),
			Actual:   fmt.Sprintf("%s at level %d", b, got),
		}
	}
	return nil
}

// assertTimer checks the remaining ticks of a timer, or that it is
// inactive when no remaining count is given.
func assertTimer(result *Result, assertion Assertion) error {
	key := timerKey(assertion.Timer, assertion.Short)
	left, active := result.Timers[key]
	switch {
	case assertion.Remaining == nil && active:
		return &AssertionError{
			Type:     AssertTimer,
			Expected: fmt.Sprintf("%s inactive", key),
			Actual:   fmt.Sprintf("%s active with %d ticks left", key, left),
		}
	case assertion.Remaining != nil && !active:
		return &AssertionError{
			Type:     AssertTimer,
			Expected: fmt.Sprintf("%s active with %d ticks left", key, *assertion.Remaining),
			Actual:   fmt.Sprintf("%s inactive", key),
		}
	case assertion.Remaining != nil && left != *assertion.Remaining:
		return &AssertionError{
			Type:     AssertTimer,
			Expected: fmt.Sprintf("%s active with %d ticks left", key, *assertion.Remaining),
			Actual:   fmt.Sprintf("%s active with %d ticks left", key, left),
		}
	}
	return nil
}

func timerKey(name string, short bool) string {
	if short {
		return "short:" + name
	}
	return name
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertIndicator:
			err = assertIndicator(result, assertion)
		case AssertTimer:
			err = assertTimer(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
