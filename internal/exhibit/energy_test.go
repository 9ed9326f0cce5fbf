package exhibit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

func (r *rig) analog(mv uint32) {
	r.t.Helper()
	r.sim.SetAnalog(hw.AnalogSolarPanel, mv)
	r.settle()
}

func TestEnergy_StartBurnsCoal(t *testing.T) {
	r := newRig(t, nil)
	assert.Equal(t, "Standby", r.ex.State("energy"))

	r.post("energy", event.StartGameN(1))

	assert.Equal(t, "CoalPowered", r.ex.State("energy"))
	assert.True(t, r.sim.LoopActive())
	assert.Equal(t, "PlayingLoop", r.ex.State("audio"))
	assert.Equal(t, 6, r.level(hw.BankPollution))
	assert.Equal(t, 6, r.level(hw.BankEnergy))
	assert.Equal(t, uint32(5000), r.remaining(TimerSunPosition))
	assert.Equal(t, uint32(5000), r.remaining(TimerCoalActive))
	assert.False(t, r.active(TimerSolarActive))
}

func TestEnergy_AnyGameIndexStarts(t *testing.T) {
	r := newRig(t, nil)

	r.post("energy", event.StartGameN(3))

	assert.Equal(t, "CoalPowered", r.ex.State("energy"))
}

func TestEnergy_CoalRaisesTemperatureAndSunMoves(t *testing.T) {
	r := newRig(t, fast)
	r.post("energy", event.StartGameN(1))

	r.advance(500)

	assert.Equal(t, 1, r.posts("game_manager", event.ScoreDelta(1)))
	assert.Equal(t, 1, r.posts("sun", event.MoveSunTo(event.SunAdvance)))
	assert.Equal(t, 1, r.sim.SunStep())
	assert.Equal(t, 2250, r.ex.Energy.SunVoltage())
	assert.Equal(t, uint32(500), r.remaining(TimerCoalActive))

	r.advance(1000)
	assert.Equal(t, 3, r.posts("game_manager", event.ScoreDelta(1)))
	assert.Equal(t, 3, r.sim.SunStep())
}

func TestEnergy_TowerPluggedSwitchesToSolar(t *testing.T) {
	r := newRig(t, nil)
	r.post("energy", event.StartGameN(1))

	r.set(hw.LineSmokeTower, false)

	assert.Equal(t, "SolarPowered", r.ex.State("energy"))
	assert.False(t, r.sim.LoopActive())
	assert.Equal(t, 2, r.level(hw.BankPollution))
	assert.Equal(t, 2, r.level(hw.BankEnergy), "panel at 0mV, sun at 2000mV")
	assert.False(t, r.active(TimerCoalActive))
	assert.Equal(t, uint32(10000), r.remaining(TimerSolarActive))
	assert.Equal(t, 1, r.posts("game_manager", event.New(event.UserMovement)))
}

func TestEnergy_PanelMovesShowAlignment(t *testing.T) {
	r := newRig(t, nil)
	r.post("energy", event.StartGameN(1))
	r.set(hw.LineSmokeTower, false)

	r.analog(1500)
	assert.Equal(t, 6, r.level(hw.BankEnergy))
	assert.Equal(t, 1, r.posts("energy", event.New(event.SolarPosChange)))

	r.analog(1800)
	assert.Equal(t, 1, r.posts("energy", event.New(event.SolarPosChange)), "below drift threshold")

	r.analog(500)
	assert.Equal(t, 4, r.level(hw.BankEnergy))
	assert.Equal(t, 2, r.posts("energy", event.New(event.SolarPosChange)))
}

func TestEnergy_SolarLowersTemperature(t *testing.T) {
	r := newRig(t, fast)
	r.post("energy", event.StartGameN(1))
	r.set(hw.LineSmokeTower, false)

	r.advance(1000)

	assert.Equal(t, 1, r.posts("game_manager", event.ScoreDelta(0)))
	assert.Equal(t, 0, r.posts("game_manager", event.ScoreDelta(1)))
	assert.Equal(t, 2, r.sim.SunStep())
}

func TestEnergy_TowerUnpluggedBackToCoal(t *testing.T) {
	r := newRig(t, nil)
	r.post("energy", event.StartGameN(1))
	r.set(hw.LineSmokeTower, false)

	r.set(hw.LineSmokeTower, true)

	assert.Equal(t, "CoalPowered", r.ex.State("energy"))
	assert.True(t, r.sim.LoopActive())
	assert.Equal(t, 6, r.level(hw.BankPollution))
	assert.Equal(t, 6, r.level(hw.BankEnergy))
	assert.False(t, r.active(TimerSolarActive))
	assert.True(t, r.active(TimerCoalActive))
}

func TestEnergy_ResetSendsSunHome(t *testing.T) {
	for _, solar := range []bool{false, true} {
		r := newRig(t, fast)
		r.post("energy", event.StartGameN(1))
		r.advance(1000)
		if solar {
			r.set(hw.LineSmokeTower, false)
		}

		r.post("energy", event.New(event.ResetAllGames))

		assert.Equal(t, "Standby", r.ex.State("energy"))
		assert.Equal(t, 0, r.sim.SunStep())
		assert.Equal(t, 1, r.posts("sun", event.MoveSunTo(event.SunHome)))
		assert.Equal(t, 0, r.level(hw.BankPollution))
		assert.Equal(t, 0, r.level(hw.BankEnergy))
		assert.False(t, r.sim.LoopActive())
		assert.Equal(t, 2000, r.ex.Energy.SunVoltage())
		for _, name := range []string{TimerSunPosition, TimerCoalActive, TimerSolarActive} {
			assert.False(t, r.active(name), name)
		}
	}
}

func TestEnergy_Alignment(t *testing.T) {
	r := newRig(t, nil)

	tests := []struct {
		mv   uint32
		want int
	}{
		{2000, 3},
		{1001, 3},
		{1000, 2},
		{3500, 2},
		{4000, 1},
		{0, 1},
	}
	for _, tt := range tests {
		r.sim.SetAnalog(hw.AnalogSolarPanel, tt.mv)
		assert.Equal(t, tt.want, r.ex.Energy.Alignment(), "panel at %dmV", tt.mv)
	}
}

func TestEnergy_StandbyIgnoresTower(t *testing.T) {
	r := newRig(t, nil)

	r.set(hw.LineSmokeTower, false)

	assert.Equal(t, "Standby", r.ex.State("energy"))
	assert.Equal(t, 1, r.posts("energy", event.New(event.TowerPlugged)))
}
