package exhibit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

func TestGameManager_WaitsForLeafAfterInit(t *testing.T) {
	r := newRig(t, nil)
	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, 0, r.level(hw.BankTemperature))
}

func TestGameManager_CorrectLeafPlaysWelcomeOnce(t *testing.T) {
	r := newRig(t, nil)

	r.set(hw.LineLeaf1, false)

	assert.Equal(t, "WelcomeSequence", r.ex.State("game_manager"))
	assert.Equal(t, 1, r.posts("audio", event.PlayTrack(0)))
	assert.Equal(t, []int{0}, r.sim.Played())
	assert.Equal(t, 4, r.level(hw.BankTemperature))
}

func TestGameManager_WelcomeDoneArmsVisitTimers(t *testing.T) {
	r := newRig(t, nil)
	r.set(hw.LineLeaf1, false)

	r.sim.FinishTrack()
	r.settle()

	assert.Equal(t, "ActiveMultiGame", r.ex.State("game_manager"))
	assert.Equal(t, 1, r.posts("energy", event.StartGameN(1)))
	assert.Equal(t, "CoalPowered", r.ex.State("energy"))

	assert.Equal(t, uint32(10000), r.remaining(TimerNextGame))
	assert.Equal(t, uint32(30000), r.remaining(TimerInactivity))
	assert.Equal(t, uint32(60000), r.remaining(TimerGameEnd))
}

func TestGameManager_OtherTrackDoesNotStartGames(t *testing.T) {
	r := newRig(t, nil)
	r.set(hw.LineLeaf1, false)

	r.post("game_manager", event.TrackDone(3))

	assert.Equal(t, "WelcomeSequence", r.ex.State("game_manager"))
	assert.Equal(t, 0, r.posts("energy", event.StartGameN(1)))
}

func TestGameManager_UpsideDownLeafPlaysErrorTrack(t *testing.T) {
	r := newRig(t, nil)

	r.sim.SetDigital(hw.LineLeaf0, true)
	r.set(hw.LineLeaf1, true)

	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, 1, r.posts("audio", event.PlayTrack(1)))
}

func TestGameManager_LeafRemovedDuringWelcome(t *testing.T) {
	r := newRig(t, nil)
	r.set(hw.LineLeaf1, false)

	r.set(hw.LineLeaf1, true)

	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, 1, r.posts("audio", event.New(event.StopAudio)))
	assert.Equal(t, 0, r.level(hw.BankTemperature))
}

func TestGameManager_CascadeStartsGamesInOrder(t *testing.T) {
	r := newRig(t, fast)
	r.startVisit()
	assert.Equal(t, 1, r.ex.Manager.Started())

	r.advance(999)
	assert.Equal(t, "Standby", r.ex.State("voting"))

	r.advance(1)
	assert.Equal(t, 1, r.posts("voting", event.StartGameN(2)))
	assert.Equal(t, "Presenting", r.ex.State("voting"))
	assert.True(t, r.sim.MotorOn())
	assert.False(t, r.active(TimerNextGame), "no games left to start")
}

func TestGameManager_TemperatureClamped(t *testing.T) {
	r := newRig(t, nil)
	r.startVisit()

	for i := 0; i < 10; i++ {
		r.post("game_manager", event.ScoreDelta(1))
	}
	assert.Equal(t, 8, r.ex.Manager.Temperature())
	assert.Equal(t, 8, r.level(hw.BankTemperature))

	for i := 0; i < 12; i++ {
		r.post("game_manager", event.ScoreDelta(0))
	}
	assert.Equal(t, 0, r.ex.Manager.Temperature())
}

func TestGameManager_InactivityResetsGames(t *testing.T) {
	r := newRig(t, fast)
	r.startVisit()

	r.advance(3000)

	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, "Standby", r.ex.State("energy"))
	assert.Equal(t, 1, r.posts("energy", event.New(event.ResetAllGames)))
	assert.Equal(t, 1, r.posts("voting", event.New(event.ResetAllGames)))
	assert.Equal(t, 0, r.level(hw.BankTemperature))
	assert.False(t, r.active(TimerGameEnd))

	// The vote game was presenting a question, so the reset waits until
	// the question wheel reaches the limit switch.
	assert.Equal(t, "Presenting", r.ex.State("voting"))
	assert.Equal(t, 1, r.ex.Voting.Deferred())

	r.set(hw.LineLimitSwitch, true)
	r.advance(12)
	assert.Equal(t, "Standby", r.ex.State("voting"))
	assert.Equal(t, 0, r.ex.Voting.Deferred())
}

func TestGameManager_MovementKeepsVisitAlive(t *testing.T) {
	r := newRig(t, fast)
	r.startVisit()

	r.advance(2000)
	r.post("game_manager", event.New(event.UserMovement))
	assert.Equal(t, uint32(3000), r.remaining(TimerInactivity))

	r.advance(2500)
	r.post("game_manager", event.New(event.UserMovement))

	r.advance(1500)
	assert.Equal(t, "Finished", r.ex.State("game_manager"))
	assert.Equal(t, "Standby", r.ex.State("energy"))
	assert.Greater(t, r.ex.Manager.Temperature(), 0, "final score stays on display")
	assert.Equal(t, r.ex.Manager.Temperature(), r.level(hw.BankTemperature))

	r.set(hw.LineLeaf1, true)
	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, 0, r.level(hw.BankTemperature))
}

func TestGameManager_LeafRemovedResets(t *testing.T) {
	r := newRig(t, nil)
	r.startVisit()

	r.set(hw.LineLeaf1, true)

	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, "Standby", r.ex.State("energy"))
	assert.False(t, r.active(TimerNextGame))
	assert.False(t, r.active(TimerInactivity))
}

func TestGameManager_ExternalReset(t *testing.T) {
	r := newRig(t, nil)
	r.startVisit()

	r.post("game_manager", event.New(event.ResetAllGames))

	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, 1, r.posts("energy", event.New(event.ResetAllGames)))
	assert.Equal(t, 1, r.posts("game_manager", event.New(event.ResetAllGames)),
		"the manager is not on the games list")
}

func TestGameManager_IgnoresUnexpectedEvents(t *testing.T) {
	r := newRig(t, nil)

	r.post("game_manager", event.ScoreDelta(1))
	r.post("game_manager", event.New(event.SwitchHit))

	assert.Equal(t, "WaitingForTrigger", r.ex.State("game_manager"))
	assert.Equal(t, 0, r.kinds(engine.RecordError, "game_manager"))
	assert.Error(t, r.ex.Sched.Post("game_manager", event.TimeoutOf(9)),
		"only the timer tables post timeouts")
	require.Equal(t, 0, r.ex.Manager.Temperature())
}
