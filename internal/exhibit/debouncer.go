package exhibit

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
)

// DebounceState is the state of one debounced channel.
type DebounceState int

const (
	Ready2Sample DebounceState = iota
	Debouncing
)

func (s DebounceState) String() string {
	switch s {
	case Ready2Sample:
		return "Ready2Sample"
	case Debouncing:
		return "Debouncing"
	default:
		return fmt.Sprintf("DebounceState(%d)", int(s))
	}
}

// Debouncer turns raw ButtonDown/ButtonUp edges into logical events.
// Each channel has its own timer, re-armed on every raw edge; only a level
// that holds for the whole window is forwarded, once, to the channel's
// target. Presses forward the channel's press event; releases forward its
// release event when one is configured.
type Debouncer struct {
	cfg    config.Debouncer
	window uint32

	logger   *slog.Logger
	channels []channel
}

type channel struct {
	cfg     config.Channel
	target  engine.Handle
	timer   engine.TimerRef
	state   DebounceState
	pending bool // raw level seen last
	settled bool // last level forwarded
}

// NewDebouncer creates the debouncer described by section.
func NewDebouncer(cfg *config.Config, section config.Debouncer) *Debouncer {
	window := cfg.Ticks(section.DebounceMS)
	if section.Short {
		window = cfg.ShortTicks(section.DebounceMS)
	}
	return &Debouncer{cfg: section, window: max(window, 1)}
}

// Init resolves each channel's target and timer.
func (d *Debouncer) Init(fw engine.Framework) error {
	d.logger = fw.Logger()
	d.channels = make([]channel, len(d.cfg.Channels))
	for i, c := range d.cfg.Channels {
		target, err := fw.Lookup(c.Target)
		if err != nil {
			return err
		}
		var timer engine.TimerRef
		if d.cfg.Short {
			timer, err = fw.ShortTimer(c.Timer)
		} else {
			timer, err = fw.Timer(c.Timer)
		}
		if err != nil {
			return err
		}
		d.channels[i] = channel{cfg: c, target: target, timer: timer}
	}
	return nil
}

// State implements engine.StateReporter: Debouncing while any channel is.
func (d *Debouncer) State() string {
	for _, c := range d.channels {
		if c.state == Debouncing {
			return Debouncing.String()
		}
	}
	return Ready2Sample.String()
}

// ChannelState returns the state of channel i.
func (d *Debouncer) ChannelState(i int) DebounceState {
	if i < 0 || i >= len(d.channels) {
		return Ready2Sample
	}
	return d.channels[i].state
}

// Run implements engine.Service.
func (d *Debouncer) Run(ev event.Event) event.Event {
	switch ev.Type {
	case event.Init:
		return event.New(event.NoEvent)
	case event.ButtonDown, event.ButtonUp:
		i := ev.Int()
		if i < 0 || i >= len(d.channels) {
			break
		}
		c := &d.channels[i]
		c.pending = ev.Is(event.ButtonDown)
		c.state = Debouncing
		return d.result(c, ev, c.timer.Arm(d.window))
	case event.Timeout, event.ShortTimeout:
		for i := range d.channels {
			c := &d.channels[i]
			if c.timer.Fired(ev) {
				return d.settle(c, ev)
			}
		}
	}
	return engine.Ignore(d.logger, stateName(d.State()), ev)
}

// settle forwards the channel's level if it changed since the last
// forward.
func (d *Debouncer) settle(c *channel, ev event.Event) event.Event {
	c.state = Ready2Sample
	if c.pending == c.settled {
		return event.New(event.NoEvent)
	}
	c.settled = c.pending

	out := c.cfg.PressEvent
	if !c.settled {
		out = c.cfg.ReleaseEvent
	}
	if out == event.NoEvent {
		return event.New(event.NoEvent)
	}
	d.logger.Debug("debounced", "line", c.cfg.Line, "pressed", c.settled, "event", out.String())
	return d.result(c, ev, c.target.Post(event.New(out)))
}

func (d *Debouncer) result(c *channel, ev event.Event, errs ...error) event.Event {
	return status(d.logger, c.state, ev, errs...)
}
