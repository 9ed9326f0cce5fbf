package exhibit

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// EnergyState is the energy game's state.
type EnergyState int

const (
	EnergyIdle EnergyState = iota
	EnergyStandby
	EnergyCoalPowered
	EnergySolarPowered
)

func (s EnergyState) String() string {
	switch s {
	case EnergyIdle:
		return "Idle"
	case EnergyStandby:
		return "Standby"
	case EnergyCoalPowered:
		return "CoalPowered"
	case EnergySolarPowered:
		return "SolarPowered"
	default:
		return fmt.Sprintf("EnergyState(%d)", int(s))
	}
}

// Energy is the coal/solar mini-game. The grid starts on coal: the loop
// track plays, pollution and energy are full, and every coal period the
// temperature goes up. Plugging the smoke tower switches to solar, which
// stops the escalation and lights energy according to how well the solar
// panel tracks the sun. Every sun period the sun moves one step.
type Energy struct {
	cfg        config.Energy
	sunT       uint32
	coalT      uint32
	solarT     uint32
	inputs     hw.Inputs
	indicators *hw.Register

	logger  *slog.Logger
	manager engine.Handle
	audio   engine.Handle
	sun     engine.Handle
	sunPos  engine.TimerRef
	coal    engine.TimerRef
	solar   engine.TimerRef

	state      EnergyState
	sunVoltage int
}

// NewEnergy creates the energy game. inputs supplies the solar panel
// reading; indicators may be nil.
func NewEnergy(cfg *config.Config, inputs hw.Inputs, indicators *hw.Register) *Energy {
	return &Energy{
		cfg:        cfg.Energy,
		sunT:       cfg.Ticks(cfg.Energy.SunPeriodMS),
		coalT:      cfg.Ticks(cfg.Energy.CoalPeriodMS),
		solarT:     cfg.Ticks(cfg.Energy.SolarPeriodMS),
		inputs:     inputs,
		indicators: indicators,
		sunVoltage: cfg.Energy.SunVoltageStart,
	}
}

// Init implements engine.Service.
func (e *Energy) Init(fw engine.Framework) error {
	e.logger = fw.Logger()

	var err error
	if e.manager, err = fw.Lookup(e.cfg.Orchestrator); err != nil {
		return err
	}
	if e.audio, err = fw.Lookup(e.cfg.Audio); err != nil {
		return err
	}
	if e.sun, err = fw.Lookup(e.cfg.Sun); err != nil {
		return err
	}
	if e.sunPos, err = fw.Timer(TimerSunPosition); err != nil {
		return err
	}
	if e.coal, err = fw.Timer(TimerCoalActive); err != nil {
		return err
	}
	if e.solar, err = fw.Timer(TimerSolarActive); err != nil {
		return err
	}
	e.state = EnergyIdle
	return nil
}

// State implements engine.StateReporter.
func (e *Energy) State() string {
	return e.state.String()
}

// SunVoltage returns the reference voltage the solar panel should match.
func (e *Energy) SunVoltage() int {
	return e.sunVoltage
}

// Run implements engine.Service.
func (e *Energy) Run(ev event.Event) event.Event {
	switch e.state {
	case EnergyIdle:
		if ev.Is(event.Init) {
			e.state = EnergyStandby
			return event.New(event.NoEvent)
		}

	case EnergyStandby:
		if ev.Is(event.StartGame) {
			e.logger.Info("energy game started", "index", ev.Int())
			e.state = EnergyCoalPowered
			return e.result(ev,
				e.audio.Post(event.New(event.PlayLoop)),
				e.show(hw.BankPollution, e.cfg.CoalLevel),
				e.show(hw.BankEnergy, e.cfg.CoalLevel),
				e.sunPos.Arm(e.sunT),
				e.coal.Arm(e.coalT),
			)
		}

	case EnergyCoalPowered:
		switch {
		case e.sunPos.Fired(ev):
			return e.result(ev, e.moveSun()...)
		case e.coal.Fired(ev):
			e.logger.Debug("coal burning, temperature up")
			return e.result(ev,
				e.manager.Post(event.ScoreDelta(1)),
				e.coal.Arm(e.coalT),
			)
		case ev.Is(event.TowerPlugged):
			e.logger.Info("tower plugged, switching to solar")
			e.state = EnergySolarPowered
			return e.result(ev,
				e.audio.Post(event.New(event.StopLoop)),
				e.coal.Disarm(),
				e.show(hw.BankPollution, e.cfg.SolarLevel),
				e.showAlignment(),
				e.solar.Arm(e.solarT),
			)
		case ev.Is(event.ResetAllGames):
			return e.reset(ev, e.audio.Post(event.New(event.StopLoop)))
		}

	case EnergySolarPowered:
		switch {
		case e.sunPos.Fired(ev):
			errs := e.moveSun()
			return e.result(ev, append(errs, e.showAlignment())...)
		case e.solar.Fired(ev):
			e.logger.Debug("solar producing, temperature down")
			return e.result(ev,
				e.manager.Post(event.ScoreDelta(0)),
				e.solar.Arm(e.solarT),
			)
		case ev.Is(event.SolarPosChange):
			return e.result(ev, e.showAlignment())
		case ev.Is(event.TowerUnplugged):
			e.logger.Info("tower unplugged, back to coal")
			e.state = EnergyCoalPowered
			return e.result(ev,
				e.audio.Post(event.New(event.PlayLoop)),
				e.solar.Disarm(),
				e.show(hw.BankPollution, e.cfg.CoalLevel),
				e.show(hw.BankEnergy, e.cfg.CoalLevel),
				e.coal.Arm(e.coalT),
			)
		case ev.Is(event.ResetAllGames):
			return e.reset(ev)
		}
	}
	return engine.Ignore(e.logger, e.state, ev)
}

// moveSun advances the sun one step, raises the sun reference voltage and
// restarts the sun period.
func (e *Energy) moveSun() []error {
	e.sunVoltage += e.cfg.SunVoltageStep
	return []error{
		e.sun.Post(event.MoveSunTo(event.SunAdvance)),
		e.sunPos.Arm(e.sunT),
	}
}

// Alignment rates how well the solar panel tracks the sun: 3 when the
// panel voltage is within well_aligned of the sun voltage, 2 within
// medium_aligned, 1 otherwise.
func (e *Energy) Alignment() int {
	solar := int(e.inputs.Analog(hw.AnalogSolarPanel))
	diff := e.sunVoltage - solar
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < e.cfg.WellAligned:
		return 3
	case diff < e.cfg.MediumAligned:
		return 2
	default:
		return 1
	}
}

func (e *Energy) showAlignment() error {
	a := e.Alignment()
	e.logger.Debug("solar alignment", "level", a, "sun_voltage", e.sunVoltage)
	return e.show(hw.BankEnergy, 2*a)
}

// reset stops the game and sends the sun home. extra carries any
// state-specific post made before the reset.
func (e *Energy) reset(ev event.Event, extra ...error) event.Event {
	e.logger.Info("energy game reset", "from", e.state.String())
	e.state = EnergyStandby
	e.sunVoltage = e.cfg.SunVoltageStart
	errs := append(extra,
		e.sunPos.Disarm(),
		e.coal.Disarm(),
		e.solar.Disarm(),
		e.sun.Post(event.MoveSunTo(event.SunHome)),
		e.show(hw.BankPollution, 0),
		e.show(hw.BankEnergy, 0),
	)
	return e.result(ev, errs...)
}

func (e *Energy) show(b hw.Bank, n int) error {
	if e.indicators == nil {
		return nil
	}
	return e.indicators.Set(b, n)
}

func (e *Energy) result(ev event.Event, errs ...error) event.Event {
	return status(e.logger, e.state, ev, errs...)
}
