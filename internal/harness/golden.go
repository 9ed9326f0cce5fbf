package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/exhibit/internal/engine"
)

// Snapshot renders a result for golden comparison: a header, every
// non-dispatch record without its sequence number, then the final state of
// each service.
//
//	scenario: welcome_visit
//	run: test-run-default
//	t=0 post game_manager Init from=init
//	...
//	state game_manager=WelcomeSequence
func Snapshot(name string, result *Result) []byte {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	fmt.Fprintf(&buf, "run: %s\n", result.RunID)
	for _, rec := range result.Trace {
		if rec.Kind == engine.RecordDispatch {
			continue
		}
		fmt.Fprintf(&buf, "t=%d %s %s %s", rec.Tick, rec.Kind, rec.Service, rec.Event)
		if rec.Source != "" {
			fmt.Fprintf(&buf, " from=%s", rec.Source)
		}
		buf.WriteByte('\n')
	}
	for _, s := range result.States {
		fmt.Fprintf(&buf, "state %s=%s\n", s.Service, s.State)
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
