package exhibit

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// Exhibit is a scheduler wired with the configured services and checkers,
// initialized and ready to run.
type Exhibit struct {
	Config     *config.Config
	Sched      *engine.Scheduler
	Board      hw.Board
	Indicators *hw.Register

	Manager    *GameManager
	Energy     *Energy
	Voting     *Voting
	Audio      *Audio
	Sun        *Sun
	Debouncers map[string]*Debouncer

	// Console is nil unless WithConsole was given.
	Console *Console
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger     *slog.Logger
	observers  []engine.Observer
	clock      *engine.Clock
	consoleOut io.Writer
}

// WithLogger sets the logger for the scheduler and every service.
func WithLogger(l *slog.Logger) Option {
	return func(o *buildOptions) {
		o.logger = l
	}
}

// WithObserver adds a trace observer.
func WithObserver(obs engine.Observer) Option {
	return func(o *buildOptions) {
		o.observers = append(o.observers, obs)
	}
}

// WithClock sets the trace clock.
func WithClock(c *engine.Clock) Option {
	return func(o *buildOptions) {
		o.clock = c
	}
}

// WithConsole adds an operator console replying to out. It needs a board
// that implements Driver.
func WithConsole(out io.Writer) Option {
	return func(o *buildOptions) {
		o.consoleOut = out
	}
}

// Build registers the services of cfg in priority order, binds the timers
// and lists, adds the checkers for board and initializes the scheduler.
func Build(cfg *config.Config, board hw.Board, opts ...Option) (*Exhibit, error) {
	if cfg == nil {
		return nil, &engine.RuntimeError{Code: engine.ErrCodeNullConfig, Message: "no configuration"}
	}
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	sopts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithMaxServices(config.MaxServices),
		engine.WithTimerSlots(cfg.TimerSlots),
		engine.WithShortTimerSlots(cfg.ShortTimerSlots),
		engine.WithTickRate(cfg.Tick, cfg.ShortTick),
	}
	if o.clock != nil {
		sopts = append(sopts, engine.WithClock(o.clock))
	}
	for _, obs := range o.observers {
		sopts = append(sopts, engine.WithObserver(obs))
	}

	ex := &Exhibit{
		Config:     cfg,
		Sched:      engine.New(sopts...),
		Board:      board,
		Indicators: hw.NewRegister(board),
		Debouncers: make(map[string]*Debouncer),
	}
	if err := ex.register(); err != nil {
		return nil, err
	}
	for _, t := range cfg.Timers {
		ex.Sched.BindTimer(t.Name, event.TimerID(t.ID), t.Responder)
	}
	for _, t := range cfg.ShortTimers {
		ex.Sched.BindShortTimer(t.Name, event.TimerID(t.ID), t.Responder)
	}
	for _, l := range cfg.Lists {
		ex.Sched.DefineList(l.Name, l.Members...)
	}
	if err := ex.addCheckers(o); err != nil {
		return nil, err
	}

	if err := ex.Sched.Initialize(); err != nil {
		return nil, err
	}
	o.logger.Info("exhibit ready",
		"services", len(cfg.Services),
		"timers", len(cfg.Timers),
		"short_timers", len(cfg.ShortTimers),
	)
	return ex, nil
}

func (ex *Exhibit) register() error {
	cfg := ex.Config
	for _, s := range cfg.Services {
		var svc engine.Service
		switch s.Kind {
		case config.KindOrchestrator:
			ex.Manager = NewGameManager(cfg, ex.Indicators)
			svc = ex.Manager
		case config.KindEnergy:
			ex.Energy = NewEnergy(cfg, ex.Board, ex.Indicators)
			svc = ex.Energy
		case config.KindVoting:
			ex.Voting = NewVoting(cfg, ex.Board)
			svc = ex.Voting
		case config.KindAudio:
			ex.Audio = NewAudio(cfg, ex.Board, ex.Board)
			svc = ex.Audio
		case config.KindSun:
			ex.Sun = NewSun(cfg, ex.Board, ex.Indicators)
			svc = ex.Sun
		case config.KindDebouncer:
			section, ok := cfg.Debouncer(s.Name)
			if !ok {
				return engine.NewConfigError("debouncer %q has no configuration", s.Name)
			}
			d := NewDebouncer(cfg, section)
			ex.Debouncers[s.Name] = d
			svc = d
		default:
			return engine.NewConfigError("service %q: unknown kind %q", s.Name, s.Kind)
		}
		if _, err := ex.Sched.Register(s.Name, svc, s.Queue); err != nil {
			return err
		}
	}
	return nil
}

// addCheckers adds the input checkers the configured services need.
func (ex *Exhibit) addCheckers(o buildOptions) error {
	cfg := ex.Config
	logger := o.logger.With("component", "checkers")

	var manager engine.Handle
	if m := cfg.ServicesOfKind(config.KindOrchestrator); len(m) > 0 {
		manager, _ = ex.Sched.Handle(m[0].Name)
		ex.Sched.AddChecker("leaf", NewLeafDetector(ex.Board, manager, logger))
	}

	for _, d := range cfg.Debouncers {
		h, ok := ex.Sched.Handle(d.Service)
		if !ok {
			return engine.NewConfigError("debouncer %q is not a registered service", d.Service)
		}
		edges, err := NewEdgeDetector(ex.Board, h, d.Channels, logger)
		if err != nil {
			return engine.NewConfigError("debouncer %q: %v", d.Service, err)
		}
		ex.Sched.AddChecker(d.Service, edges)
	}

	if e := cfg.ServicesOfKind(config.KindEnergy); len(e) > 0 && manager.Valid() {
		energy, _ := ex.Sched.Handle(e[0].Name)
		ex.Sched.AddChecker("smoke_tower", NewTowerDetector(ex.Board, energy, manager, logger))
		ex.Sched.AddChecker("solar_panel",
			NewSolarDetector(ex.Board, energy, manager, cfg.Energy.DriftThreshold, logger))
	}

	if ex.Audio != nil {
		ex.Sched.AddChecker("audio_activity", engine.CheckerFunc(ex.Audio.CheckActivity))
	}

	if o.consoleOut != nil {
		drv, ok := ex.Board.(Driver)
		if !ok {
			return fmt.Errorf("console needs a drivable board, got %T", ex.Board)
		}
		ex.Console = NewConsole(ex.Sched, drv, o.consoleOut, o.logger)
		ex.Sched.AddChecker("console", ex.Console)
	}
	return nil
}

// State returns the named service's state, or "" if it does not report one.
func (ex *Exhibit) State(service string) string {
	svc, ok := ex.Sched.Service(service)
	if !ok {
		return ""
	}
	if sr, ok := svc.(engine.StateReporter); ok {
		return sr.State()
	}
	return ""
}
