package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/exhibit"
	"github.com/roach88/exhibit/internal/hw"
	"github.com/roach88/exhibit/internal/store"
	"github.com/roach88/exhibit/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario on a simulated board with a deterministic run id
// and wall clock.
type Harness struct {
	ex     *exhibit.Exhibit
	sim    *hw.Sim
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes scheduler and service logs to l. By default they are
// discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the configuration and apply the tick overrides
// 2. Open an in-memory store and start recording a run
// 3. Build the exhibit on a simulated board
// 4. Execute the steps
// 5. Read the trace back and evaluate the assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := loadConfig(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:", store.WithNow(testutil.NewWallClock().Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	runID := testutil.NewFixedRunID(scenario.RunID).Generate()
	source := scenario.Config
	if source == "" {
		source = "default"
	}
	rec, err := st.NewRecorder(ctx, runID, source, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}
	if err := st.TagRun(ctx, runID, fingerprint); err != nil {
		return nil, fmt.Errorf("failed to tag run: %w", err)
	}

	sim := hw.NewSim(o.logger)
	ex, err := exhibit.Build(cfg, sim, exhibit.WithLogger(o.logger), exhibit.WithObserver(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to build exhibit: %w", err)
	}

	h := &Harness{ex: ex, sim: sim, logger: o.logger}
	if err := h.settle(); err != nil {
		return nil, fmt.Errorf("initialization: %w", err)
	}
	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		h.logger.Debug("step completed", "step", i, "tick", ex.Sched.Clock().Ticks())
	}

	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("failed to record trace: %w", err)
	}
	if err := rec.Close(); err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}

	result := NewResult(runID)
	result.Fingerprint = fingerprint
	result.Trace, err = st.ReadTrace(ctx, runID, store.TraceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	h.snapshot(result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadConfig reads the scenario's configuration, or the stock one, and
// applies the tick overrides.
func loadConfig(s *Scenario) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if s.Config != "" {
		cfg, err = config.Load(s.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if s.Tick != "" {
		if cfg.Tick, err = time.ParseDuration(s.Tick); err != nil {
			return nil, fmt.Errorf("tick: %w", err)
		}
	}
	if s.ShortTick != "" {
		if cfg.ShortTick, err = time.ParseDuration(s.ShortTick); err != nil {
			return nil, fmt.Errorf("short_tick: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// execute runs one step.
func (h *Harness) execute(step Step) error {
	switch {
	case step.Set != nil:
		line, err := hw.ParseLine(step.Set.Line)
		if err != nil {
			return err
		}
		h.sim.SetDigital(line, step.Set.Level)
		return h.settle()

	case step.Analog != nil:
		ch, err := hw.ParseAnalog(step.Analog.Channel)
		if err != nil {
			return err
		}
		h.sim.SetAnalog(ch, step.Analog.Value)
		return h.settle()

	case step.Post != nil:
		t, err := event.Parse(step.Post.Event)
		if err != nil {
			return err
		}
		ev, err := event.Make(t, step.Post.Param)
		if err != nil {
			return err
		}
		if err := h.ex.Sched.Post(step.Post.Service, ev); err != nil {
			return err
		}
		return h.settle()

	case step.Advance > 0:
		return h.ex.Sched.Advance(step.Advance)

	case step.Cycle > 0:
		for i := 0; i < step.Cycle; i++ {
			if _, err := h.ex.Sched.RunCycle(); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("empty step")
}

func (h *Harness) settle() error {
	_, err := h.ex.Sched.RunUntilIdle(0)
	return err
}

// snapshot copies the final service states, indicator levels and active
// timers into result.
func (h *Harness) snapshot(result *Result) {
	for _, s := range h.ex.Sched.Services() {
		result.States = append(result.States, ServiceState{Service: s.Name, State: s.State})
	}
	for _, b := range hw.Banks() {
		result.Indicators[b.String()] = h.ex.Indicators.Level(b)
	}
	for _, table := range []struct {
		t     *engine.TimerTable
		short bool
	}{{h.ex.Sched.Timers(), false}, {h.ex.Sched.ShortTimers(), true}} {
		for _, b := range table.t.Bindings() {
			if left, ok := table.t.Remaining(b.ID); ok {
				result.Timers[timerKey(b.Name, table.short)] = left
			}
		}
	}
}
