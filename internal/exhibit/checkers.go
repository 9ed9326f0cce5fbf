package exhibit

import (
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// Every checker samples its inputs when created, so the idle board posts
// nothing on the first cycle. Each Check reports whether it posted; a
// failed post is logged and the new level is still recorded.

// LeafDetector watches the two leaf reflectance lines.
//
//	leaf0 low,  leaf1 low:  LeafInCorrect
//	leaf0 high, leaf1 high: LeafInIncorrect
//	leaf0 low,  leaf1 high: LeafRemoved
//	leaf0 high, leaf1 low:  sensor fault, logged and not posted
type LeafDetector struct {
	in     hw.Inputs
	target engine.Poster
	logger *slog.Logger
	last0  bool
	last1  bool
}

// NewLeafDetector creates a leaf detector posting to target.
func NewLeafDetector(in hw.Inputs, target engine.Poster, logger *slog.Logger) *LeafDetector {
	return &LeafDetector{
		in:     in,
		target: target,
		logger: logger,
		last0:  in.Digital(hw.LineLeaf0),
		last1:  in.Digital(hw.LineLeaf1),
	}
}

// Check implements engine.Checker.
func (l *LeafDetector) Check() bool {
	cur0, cur1 := l.in.Digital(hw.LineLeaf0), l.in.Digital(hw.LineLeaf1)
	if cur0 == l.last0 && cur1 == l.last1 {
		return false
	}
	l.last0, l.last1 = cur0, cur1

	var t event.Type
	switch {
	case cur0 && cur1:
		t = event.LeafInIncorrect
	case !cur0 && !cur1:
		t = event.LeafInCorrect
	case cur1:
		t = event.LeafRemoved
	default:
		l.logger.Warn("leaf sensor fault", "leaf0", cur0, "leaf1", cur1)
		return false
	}
	return post(l.logger, l.target, event.New(t))
}

// EdgeDetector watches the input lines of one debouncer and posts
// ButtonDown{i} or ButtonUp{i} on every raw edge of channel i.
type EdgeDetector struct {
	in      hw.Inputs
	target  engine.Poster
	logger  *slog.Logger
	lines   []hw.Line
	active  []bool
	pressed []bool
}

// NewEdgeDetector creates an edge detector for channels, posting to target.
func NewEdgeDetector(in hw.Inputs, target engine.Poster, channels []config.Channel, logger *slog.Logger) (*EdgeDetector, error) {
	d := &EdgeDetector{in: in, target: target, logger: logger}
	for _, c := range channels {
		line, err := hw.ParseLine(c.Line)
		if err != nil {
			return nil, err
		}
		d.lines = append(d.lines, line)
		d.active = append(d.active, c.ActiveHigh)
		d.pressed = append(d.pressed, in.Digital(line) == c.ActiveHigh)
	}
	return d, nil
}

// Check implements engine.Checker.
func (d *EdgeDetector) Check() bool {
	posted := false
	for i, line := range d.lines {
		pressed := d.in.Digital(line) == d.active[i]
		if pressed == d.pressed[i] {
			continue
		}
		d.pressed[i] = pressed
		ev := event.Up(i)
		if pressed {
			ev = event.Down(i)
		}
		if post(d.logger, d.target, ev) {
			posted = true
		}
	}
	return posted
}

// TowerDetector watches the smoke tower line: low is plugged. Either edge
// also counts as visitor movement.
type TowerDetector struct {
	in      hw.Inputs
	energy  engine.Poster
	manager engine.Poster
	logger  *slog.Logger
	plugged bool
}

// NewTowerDetector creates a smoke tower detector.
func NewTowerDetector(in hw.Inputs, energy, manager engine.Poster, logger *slog.Logger) *TowerDetector {
	return &TowerDetector{
		in:      in,
		energy:  energy,
		manager: manager,
		logger:  logger,
		plugged: !in.Digital(hw.LineSmokeTower),
	}
}

// Check implements engine.Checker.
func (d *TowerDetector) Check() bool {
	plugged := !d.in.Digital(hw.LineSmokeTower)
	if plugged == d.plugged {
		return false
	}
	d.plugged = plugged
	t := event.TowerUnplugged
	if plugged {
		t = event.TowerPlugged
	}
	a := post(d.logger, d.energy, event.New(t))
	b := post(d.logger, d.manager, event.New(event.UserMovement))
	return a || b
}

// SolarDetector watches the solar panel voltage and reports a move once
// it drifts by at least threshold from the last reported reading. A move
// also counts as visitor movement.
type SolarDetector struct {
	in        hw.Inputs
	energy    engine.Poster
	manager   engine.Poster
	logger    *slog.Logger
	threshold uint32
	last      uint32
}

// NewSolarDetector creates a solar panel detector.
func NewSolarDetector(in hw.Inputs, energy, manager engine.Poster, threshold int, logger *slog.Logger) *SolarDetector {
	return &SolarDetector{
		in:        in,
		energy:    energy,
		manager:   manager,
		logger:    logger,
		threshold: uint32(max(threshold, 1)),
		last:      in.Analog(hw.AnalogSolarPanel),
	}
}

// Check implements engine.Checker.
func (d *SolarDetector) Check() bool {
	cur := d.in.Analog(hw.AnalogSolarPanel)
	drift := cur - d.last
	if cur < d.last {
		drift = d.last - cur
	}
	if drift < d.threshold {
		return false
	}
	d.last = cur
	a := post(d.logger, d.energy, event.New(event.SolarPosChange))
	b := post(d.logger, d.manager, event.New(event.UserMovement))
	return a || b
}

// post delivers ev and reports whether it was accepted.
func post(logger *slog.Logger, target engine.Poster, ev event.Event) bool {
	if err := target.Post(ev); err != nil {
		logger.Warn("checker post failed", "event", ev.String(), "error", err)
		return false
	}
	return true
}
