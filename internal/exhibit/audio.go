package exhibit

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// AudioState is the audio service's state.
type AudioState int

const (
	AudioIdle AudioState = iota
	AudioSilent
	AudioPlaying
	AudioLooping
	AudioResetting
)

func (s AudioState) String() string {
	switch s {
	case AudioIdle:
		return "Idle"
	case AudioSilent:
		return "NoAudio"
	case AudioPlaying:
		return "PlayingAudio"
	case AudioLooping:
		return "PlayingLoop"
	case AudioResetting:
		return "Resetting"
	default:
		return fmt.Sprintf("AudioState(%d)", int(s))
	}
}

// Audio drives the sound board. A track starts when its trigger line is
// held for one pulse; the board drops its activity line while playing and
// raises it when done, which CheckActivity reports as AudioDone{track}.
// StopAudio pulses the reset line. The loop line plays the background
// track for as long as it is held.
type Audio struct {
	pulse  uint32
	inputs hw.Inputs
	board  hw.AudioBoard

	logger *slog.Logger
	done   *engine.DistributionList
	timer  engine.TimerRef

	state      AudioState
	track      int
	triggered  bool
	lastActive bool
}

// NewAudio creates the audio service. inputs supplies the activity line.
func NewAudio(cfg *config.Config, inputs hw.Inputs, board hw.AudioBoard) *Audio {
	return &Audio{
		pulse:      cfg.Ticks(cfg.Audio.PulseMS),
		inputs:     inputs,
		board:      board,
		lastActive: inputs.Digital(hw.LineAudioActive),
	}
}

// Init implements engine.Service.
func (a *Audio) Init(fw engine.Framework) error {
	a.logger = fw.Logger()

	var err error
	if a.done, err = fw.List(ListAudioDone); err != nil {
		return err
	}
	if a.timer, err = fw.Timer(TimerAudioPulse); err != nil {
		return err
	}
	a.board.Loop(false)
	a.board.Reset(false)
	a.state = AudioIdle
	return nil
}

// State implements engine.StateReporter.
func (a *Audio) State() string {
	return a.state.String()
}

// Track returns the track playing, if any.
func (a *Audio) Track() (int, bool) {
	return a.track, a.state == AudioPlaying
}

// Run implements engine.Service.
func (a *Audio) Run(ev event.Event) event.Event {
	switch a.state {
	case AudioIdle:
		if ev.Is(event.Init) {
			a.state = AudioSilent
			return event.New(event.NoEvent)
		}

	case AudioSilent:
		switch ev.Type {
		case event.PlayAudio:
			a.track = ev.Int()
			a.triggered = true
			a.board.Trigger(a.track, true)
			a.state = AudioPlaying
			a.logger.Info("playing track", "track", a.track)
			return a.result(ev, a.timer.Arm(a.pulse))
		case event.PlayLoop:
			a.board.Loop(true)
			a.state = AudioLooping
			return event.New(event.NoEvent)
		}

	case AudioPlaying:
		switch {
		case a.timer.Fired(ev):
			a.release()
			return event.New(event.NoEvent)
		case ev.Is(event.AudioDone):
			a.logger.Info("track finished", "track", ev.Int())
			a.release()
			a.state = AudioSilent
			return a.result(ev, a.timer.Disarm())
		case ev.Is(event.StopAudio):
			a.release()
			a.board.Reset(true)
			a.state = AudioResetting
			return a.result(ev, a.timer.Arm(a.pulse))
		}

	case AudioResetting:
		if a.timer.Fired(ev) {
			a.board.Reset(false)
			a.logger.Info("audio board reset")
			a.state = AudioSilent
			return event.New(event.NoEvent)
		}

	case AudioLooping:
		if ev.Is(event.StopLoop) {
			a.board.Loop(false)
			a.state = AudioSilent
			return event.New(event.NoEvent)
		}
	}
	return engine.Ignore(a.logger, a.state, ev)
}

// release drops the trigger line if it is still held.
func (a *Audio) release() {
	if a.triggered {
		a.board.Trigger(a.track, false)
		a.triggered = false
	}
}

// CheckActivity watches the board's activity line. A rising edge means
// the track ended: AudioDone{track} goes to the audio_done list.
func (a *Audio) CheckActivity() bool {
	active := a.inputs.Digital(hw.LineAudioActive)
	if active == a.lastActive {
		return false
	}
	a.lastActive = active
	if !active || a.state != AudioPlaying {
		return false
	}
	if err := a.done.Post(event.TrackDone(a.track)); err != nil {
		a.logger.Warn("audio done not delivered", "track", a.track, "error", err)
	}
	return true
}

func (a *Audio) result(ev event.Event, errs ...error) event.Event {
	return status(a.logger, a.state, ev, errs...)
}
