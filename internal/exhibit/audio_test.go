package exhibit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/exhibit/internal/event"
)

func TestAudio_InitReleasesLines(t *testing.T) {
	r := newRig(t, nil)

	assert.Equal(t, "NoAudio", r.ex.State("audio"))
	assert.False(t, r.sim.LoopActive())
	assert.False(t, r.sim.ResetActive())
}

func TestAudio_PlayPulsesTrigger(t *testing.T) {
	r := newRig(t, fast)

	r.post("audio", event.PlayTrack(5))
	assert.Equal(t, "PlayingAudio", r.ex.State("audio"))
	assert.True(t, r.sim.TriggerActive(5))
	track, playing := r.ex.Audio.Track()
	assert.True(t, playing)
	assert.Equal(t, 5, track)

	r.advance(50)
	assert.False(t, r.sim.TriggerActive(5), "trigger released after the pulse")
	assert.Equal(t, "PlayingAudio", r.ex.State("audio"))
}

func TestAudio_TrackEndNotifiesList(t *testing.T) {
	r := newRig(t, nil)
	r.post("audio", event.PlayTrack(2))

	r.sim.FinishTrack()
	r.settle()

	assert.Equal(t, "NoAudio", r.ex.State("audio"))
	assert.Equal(t, 1, r.posts("audio", event.TrackDone(2)))
	assert.Equal(t, 1, r.posts("game_manager", event.TrackDone(2)))
	assert.False(t, r.sim.TriggerActive(2))
	assert.False(t, r.active(TimerAudioPulse))
}

func TestAudio_IdleActivityEdgeIgnored(t *testing.T) {
	r := newRig(t, nil)

	r.sim.Trigger(4, true)
	r.settle()
	r.sim.FinishTrack()
	r.settle()

	assert.Equal(t, 0, r.posts("game_manager", event.TrackDone(4)))
}

func TestAudio_StopResetsBoard(t *testing.T) {
	r := newRig(t, fast)
	r.post("audio", event.PlayTrack(0))

	r.post("audio", event.New(event.StopAudio))
	assert.Equal(t, "Resetting", r.ex.State("audio"))
	assert.True(t, r.sim.ResetActive())
	assert.False(t, r.sim.TriggerActive(0))

	r.advance(50)
	assert.Equal(t, "NoAudio", r.ex.State("audio"))
	assert.False(t, r.sim.ResetActive())
}

func TestAudio_Loop(t *testing.T) {
	r := newRig(t, nil)

	r.post("audio", event.New(event.PlayLoop))
	assert.Equal(t, "PlayingLoop", r.ex.State("audio"))
	assert.True(t, r.sim.LoopActive())

	r.post("audio", event.PlayTrack(1))
	assert.Empty(t, r.sim.Played(), "no track over the loop")

	r.post("audio", event.New(event.StopLoop))
	assert.Equal(t, "NoAudio", r.ex.State("audio"))
	assert.False(t, r.sim.LoopActive())
}
