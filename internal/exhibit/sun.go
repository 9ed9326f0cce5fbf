package exhibit

import (
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// Sun positions the sun servo across one day of Steps positions.
// MoveSun{advance} moves one step and wraps after the last;
// MoveSun{home} returns to the first. The sun indicator bank shows which
// part of the day it is.
type Sun struct {
	steps      int
	servo      hw.Servo
	indicators *hw.Register

	logger *slog.Logger
	step   int
	ready  bool
}

// NewSun creates the sun actuator service. indicators may be nil.
func NewSun(cfg *config.Config, servo hw.Servo, indicators *hw.Register) *Sun {
	return &Sun{
		steps:      max(cfg.Sun.Steps, 1),
		servo:      servo,
		indicators: indicators,
	}
}

// Init implements engine.Service.
func (s *Sun) Init(fw engine.Framework) error {
	s.logger = fw.Logger()
	s.step = 0
	s.servo.SetSunStep(0)
	return nil
}

// State implements engine.StateReporter.
func (s *Sun) State() string {
	if !s.ready {
		return "Idle"
	}
	return "Ready"
}

// Step returns the current position.
func (s *Sun) Step() int {
	return s.step
}

// Run implements engine.Service.
func (s *Sun) Run(ev event.Event) event.Event {
	switch {
	case ev.Is(event.Init):
		s.ready = true
		return status(s.logger, s, ev, s.show())
	case ev.Is(event.MoveSun) && s.ready:
		p, _ := ev.Param.(event.Sun)
		if p.Move == event.SunHome {
			s.step = 0
		} else {
			s.step = (s.step + 1) % s.steps
		}
		s.servo.SetSunStep(s.step)
		s.logger.Debug("sun moved", "move", p.Move.String(), "step", s.step)
		return status(s.logger, s, ev, s.show())
	}
	return engine.Ignore(s.logger, s, ev)
}

func (s *Sun) String() string {
	return s.State()
}

// show lights the sun bank in proportion to the time of day.
func (s *Sun) show() error {
	if s.indicators == nil {
		return nil
	}
	level := s.step * (hw.BankSun.Width() + 1) / s.steps
	return s.indicators.Set(hw.BankSun, level)
}
