// Package hw defines the exhibit's hardware collaborators: the digital and
// analog inputs the event checkers poll, the indicator shift register, the
// audio board, the sun servo and the question motor.
//
// Sim is an in-memory board used by the simulator, the scenario harness
// and tests. Real pin drivers stay outside this module.
package hw

import (
	"fmt"
	"sort"
)

// Line names a digital input.
type Line string

const (
	// LineLeaf0 and LineLeaf1 are the two reflectance lines of the leaf
	// detector. Both low: leaf in correctly. Both high: leaf in upside
	// down. Only LineLeaf1 high: leaf removed.
	LineLeaf0 Line = "leaf0"
	LineLeaf1 Line = "leaf1"

	// Voting buttons, active high.
	LineButtonYes   Line = "button_yes"
	LineButtonNo    Line = "button_no"
	LineLimitSwitch Line = "limit_switch"

	// LineMeatSwitch is the meat tracker microswitch, active low.
	LineMeatSwitch Line = "meat_switch"

	// LineSmokeTower is the smoke tower IR break, low when plugged.
	LineSmokeTower Line = "smoke_tower"

	// LineAudioActive is the audio board activity output: low while a
	// track plays, high when idle.
	LineAudioActive Line = "audio_active"
)

// Analog names an analog input.
type Analog string

// AnalogSolarPanel is the solar panel position voltage in millivolts.
const AnalogSolarPanel Analog = "solar_panel"

// Lines returns every known digital line in a stable order.
func Lines() []Line {
	return []Line{
		LineLeaf0, LineLeaf1,
		LineButtonYes, LineButtonNo, LineLimitSwitch,
		LineMeatSwitch, LineSmokeTower, LineAudioActive,
	}
}

// ParseLine resolves a line name.
func ParseLine(name string) (Line, error) {
	for _, l := range Lines() {
		if string(l) == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown line %q", name)
}

// ParseAnalog resolves an analog channel name.
func ParseAnalog(name string) (Analog, error) {
	if name == string(AnalogSolarPanel) {
		return AnalogSolarPanel, nil
	}
	return "", fmt.Errorf("unknown analog channel %q", name)
}

// Inputs is what the event checkers poll.
type Inputs interface {
	Digital(line Line) bool
	Analog(ch Analog) uint32
}

// AudioBoard drives the sound board's trigger lines. Every line is active
// while the argument is true; the board needs a line held for its own
// debounce period before it reacts.
type AudioBoard interface {
	Trigger(track int, active bool)
	Loop(active bool)
	Reset(active bool)
}

// Servo positions the sun actuator.
type Servo interface {
	SetSunStep(step int)
}

// Motor drives the voting question wheel.
type Motor interface {
	SetMotor(on bool)
}

// Shifter receives a full indicator register image each time it changes.
// A hardware implementation clocks it out serially, LSB first.
type Shifter interface {
	Shift(image uint32) error
}

// Board is the complete set of collaborators.
type Board interface {
	Inputs
	AudioBoard
	Servo
	Motor
	Shifter
}

// sortedLines returns the keys of m in name order.
func sortedLines(m map[Line]bool) []Line {
	out := make([]Line, 0, len(m))
	for l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
