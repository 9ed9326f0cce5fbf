package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// Scenario defines an exhibit test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is an optional path to a CUE configuration file or
	// directory, relative to the scenario file. Empty means the stock
	// exhibit.
	Config string `yaml:"config,omitempty"`

	// Tick and ShortTick override the configured tick periods, e.g. "10ms".
	Tick      string `yaml:"tick,omitempty"`
	ShortTick string `yaml:"short_tick,omitempty"`

	// Steps drive the board and the scheduler, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id. If empty, defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Step is one scenario step. Exactly one field is set.
type Step struct {
	Set     *SetStep    `yaml:"set,omitempty"`
	Analog  *AnalogStep `yaml:"analog,omitempty"`
	Post    *PostStep   `yaml:"post,omitempty"`
	Advance int         `yaml:"advance,omitempty"`
	Cycle   int         `yaml:"cycle,omitempty"`
}

// SetStep drives a digital input line.
type SetStep struct {
	Line  string `yaml:"line"`
	Level bool   `yaml:"level"`
}

// AnalogStep drives an analog input, in millivolts.
type AnalogStep struct {
	Channel string `yaml:"channel"`
	Value   uint32 `yaml:"value"`
}

// PostStep posts an event to a service from outside the loop.
type PostStep struct {
	Service string `yaml:"service"`
	Event   string `yaml:"event"`
	Param   int    `yaml:"param,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event was posted to Service
	// - "trace_order": Events were posted in order
	// - "trace_count": an event was posted to Service exactly Count times
	// - "final_state": Service ended in State
	// - "indicator": Bank shows Level
	// - "timer": Timer has Remaining ticks left, or is inactive
	Type string `yaml:"type"`

	// Service is the receiving service (trace_contains, trace_count,
	// final_state).
	Service string `yaml:"service,omitempty"`

	// Event and Param name the event (trace_contains, trace_count). A nil
	// Param matches any payload.
	Event string `yaml:"event,omitempty"`
	Param *int   `yaml:"param,omitempty"`

	// Kind is the record kind to match; default "post".
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected order, each "service:Event" or
	// "service:Event(n)" (trace_order).
	Events []string `yaml:"events,omitempty"`

	// State is the expected state name (final_state).
	State string `yaml:"state,omitempty"`

	// Bank and Level check an indicator bank (indicator).
	Bank  string `yaml:"bank,omitempty"`
	Level *int   `yaml:"level,omitempty"`

	// Timer names a timer; Short selects the short table (timer).
	// Remaining nil asserts the timer is inactive.
	Timer     string  `yaml:"timer,omitempty"`
	Short     bool    `yaml:"short,omitempty"`
	Remaining *uint32 `yaml:"remaining,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertIndicator     = "indicator"
	AssertTimer         = "timer"
)

// LoadScenario reads and parses a scenario YAML file. A relative config
// path is resolved against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config not found: %s", s.Config)
		}
	}

	for _, d := range []struct{ field, value string }{{"tick", s.Tick}, {"short_tick", s.ShortTick}} {
		if d.value == "" {
			continue
		}
		if v, err := time.ParseDuration(d.value); err != nil || v <= 0 {
			return fmt.Errorf("%s: invalid duration %q", d.field, d.value)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that exactly one action is set and that its names
// resolve.
func validateStep(index int, st *Step) error {
	n := 0
	if st.Set != nil {
		n++
		if _, err := hw.ParseLine(st.Set.Line); err != nil {
			return fmt.Errorf("steps[%d].set: %w", index, err)
		}
	}
	if st.Analog != nil {
		n++
		if _, err := hw.ParseAnalog(st.Analog.Channel); err != nil {
			return fmt.Errorf("steps[%d].analog: %w", index, err)
		}
	}
	if st.Post != nil {
		n++
		if st.Post.Service == "" {
			return fmt.Errorf("steps[%d].post: service is required", index)
		}
		t, err := event.Parse(st.Post.Event)
		if err != nil {
			return fmt.Errorf("steps[%d].post: %w", index, err)
		}
		if t.Reserved() {
			return fmt.Errorf("steps[%d].post: reserved event %s cannot be posted", index, t)
		}
	}
	if st.Advance < 0 || st.Cycle < 0 {
		return fmt.Errorf("steps[%d]: advance and cycle must be non-negative", index)
	}
	if st.Advance > 0 {
		n++
	}
	if st.Cycle > 0 {
		n++
	}
	if n != 1 {
		return fmt.Errorf("steps[%d]: exactly one of set, analog, post, advance, cycle is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Kind != "" {
		if _, err := parseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}

	switch a.Type {
	case AssertTraceContains, AssertTraceCount:
		if a.Service == "" || a.Event == "" {
			return fmt.Errorf("assertions[%d]: service and event are required for %s", index, a.Type)
		}
		if _, err := event.Parse(a.Event); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Type == AssertTraceCount && a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
		for _, e := range a.Events {
			if _, err := parseTraceRef(e); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertFinalState:
		if a.Service == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: service and state are required for final_state", index)
		}
	case AssertIndicator:
		if _, err := hw.ParseBank(a.Bank); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Level == nil {
			return fmt.Errorf("assertions[%d]: level is required for indicator", index)
		}
	case AssertTimer:
		if a.Timer == "" {
			return fmt.Errorf("assertions[%d]: timer is required for timer", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// parseKind resolves a record kind name.
func parseKind(s string) (engine.RecordKind, error) {
	switch k := engine.RecordKind(s); k {
	case engine.RecordPost, engine.RecordDrop, engine.RecordDispatch,
		engine.RecordDefer, engine.RecordRecall, engine.RecordError:
		return k, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}
