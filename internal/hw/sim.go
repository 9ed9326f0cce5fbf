package hw

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// SunSteps is the number of sun positions across one simulated day.
const SunSteps = 12

// Sim is an in-memory Board.
//
// Inputs start in the idle exhibit state: no leaf (only leaf1 high), tower
// unplugged, meat switch released, buttons up, audio board idle. Outputs
// are recorded so tests and the harness can inspect them.
//
// Safe for concurrent use: the keystroke reader and the scheduler loop may
// touch the same board.
type Sim struct {
	mu      sync.Mutex
	logger  *slog.Logger
	digital map[Line]bool
	analog  map[Analog]uint32

	triggers map[int]bool
	loop     bool
	reset    bool
	motor    bool
	sunStep  int
	image    uint32
	shifts   int
	played   []int
}

// NewSim creates a simulated board in the idle exhibit state.
func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		logger: logger.With("component", "sim"),
		digital: map[Line]bool{
			LineLeaf0:       false,
			LineLeaf1:       true,
			LineButtonYes:   false,
			LineButtonNo:    false,
			LineLimitSwitch: false,
			LineMeatSwitch:  true,
			LineSmokeTower:  true,
			LineAudioActive: true,
		},
		analog:   map[Analog]uint32{AnalogSolarPanel: 0},
		triggers: make(map[int]bool),
	}
}

// Digital returns the level of line.
func (s *Sim) Digital(line Line) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.digital[line]
}

// Analog returns the reading of ch.
func (s *Sim) Analog(ch Analog) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analog[ch]
}

// SetDigital drives an input line.
func (s *Sim) SetDigital(line Line, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digital[line] = level
}

// SetAnalog drives an analog input.
func (s *Sim) SetAnalog(ch Analog, v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analog[ch] = v
}

// Trigger drives a track trigger line. Activating a trigger starts the
// track: the activity line drops until someone raises it again.
func (s *Sim) Trigger(track int, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[track] = active
	if active {
		s.digital[LineAudioActive] = false
		s.played = append(s.played, track)
	}
	s.logger.Debug("audio trigger", "track", track, "active", active)
}

// Loop drives the background loop line.
func (s *Sim) Loop(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = active
	s.logger.Debug("audio loop", "active", active)
}

// Reset drives the audio board reset line. Releasing it returns the board
// to idle.
func (s *Sim) Reset(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset = active
	if !active {
		for k := range s.triggers {
			s.triggers[k] = false
		}
		s.digital[LineAudioActive] = true
	}
	s.logger.Debug("audio reset", "active", active)
}

// SetSunStep positions the sun servo.
func (s *Sim) SetSunStep(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sunStep = step
	s.logger.Debug("sun moved", "step", step)
}

// SetMotor switches the question motor.
func (s *Sim) SetMotor(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motor = on
	s.logger.Debug("motor", "on", on)
}

// Shift records a register image.
func (s *Sim) Shift(image uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = image
	s.shifts++
	return nil
}

// FinishTrack raises the activity line as the board does when a track ends.
func (s *Sim) FinishTrack() {
	s.SetDigital(LineAudioActive, true)
}

// TriggerActive reports whether a track's trigger line is held.
func (s *Sim) TriggerActive(track int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers[track]
}

// LoopActive reports whether the loop line is held.
func (s *Sim) LoopActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// ResetActive reports whether the reset line is held.
func (s *Sim) ResetActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset
}

// MotorOn reports whether the question motor runs.
func (s *Sim) MotorOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motor
}

// SunStep returns the servo position.
func (s *Sim) SunStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sunStep
}

// Image returns the last shifted register image and how many images were
// shifted in total.
func (s *Sim) Image() (uint32, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image, s.shifts
}

// Played returns every track triggered so far, in order.
func (s *Sim) Played() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.played))
	copy(out, s.played)
	return out
}

// String summarizes inputs and outputs on one line.
func (s *Sim) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for _, l := range sortedLines(s.digital) {
		fmt.Fprintf(&b, "%s=%d ", l, btoi(s.digital[l]))
	}
	fmt.Fprintf(&b, "%s=%d motor=%d loop=%d sun=%d image=%06x",
		AnalogSolarPanel, s.analog[AnalogSolarPanel],
		btoi(s.motor), btoi(s.loop), s.sunStep, s.image)
	return b.String()
}

func btoi(v bool) int {
	if v {
		return 1
	}
	return 0
}
