package exhibit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// recorder collects posted events.
type recorder struct {
	got  []event.Event
	fail bool
}

func (r *recorder) poster() engine.Poster {
	return engine.PosterFunc(func(ev event.Event) error {
		if r.fail {
			return errors.New("queue full")
		}
		r.got = append(r.got, ev)
		return nil
	})
}

func TestLeafDetector(t *testing.T) {
	sim := hw.NewSim(quietLogger())
	rec := &recorder{}
	d := NewLeafDetector(sim, rec.poster(), quietLogger())

	assert.False(t, d.Check(), "idle board posts nothing")

	sim.SetDigital(hw.LineLeaf1, false)
	assert.True(t, d.Check())
	assert.False(t, d.Check(), "level unchanged")

	sim.SetDigital(hw.LineLeaf1, true)
	assert.True(t, d.Check())

	sim.SetDigital(hw.LineLeaf0, true)
	assert.True(t, d.Check())

	sim.SetDigital(hw.LineLeaf1, false)
	assert.False(t, d.Check(), "sensor fault")

	assert.Equal(t, []event.Event{
		event.New(event.LeafInCorrect),
		event.New(event.LeafRemoved),
		event.New(event.LeafInIncorrect),
	}, rec.got)
}

func TestLeafDetector_FailedPostStillRecordsLevel(t *testing.T) {
	sim := hw.NewSim(quietLogger())
	rec := &recorder{fail: true}
	d := NewLeafDetector(sim, rec.poster(), quietLogger())

	sim.SetDigital(hw.LineLeaf1, false)
	assert.False(t, d.Check())

	rec.fail = false
	assert.False(t, d.Check(), "the edge is not replayed")
	assert.Empty(t, rec.got)
}

func TestEdgeDetector(t *testing.T) {
	sim := hw.NewSim(quietLogger())
	rec := &recorder{}
	channels := []config.Channel{
		{Line: "button_yes", ActiveHigh: true},
		{Line: "meat_switch", ActiveHigh: false},
	}
	d, err := NewEdgeDetector(sim, rec.poster(), channels, quietLogger())
	require.NoError(t, err)
	assert.False(t, d.Check())

	sim.SetDigital(hw.LineButtonYes, true)
	sim.SetDigital(hw.LineMeatSwitch, false)
	assert.True(t, d.Check())

	sim.SetDigital(hw.LineMeatSwitch, true)
	assert.True(t, d.Check())

	assert.Equal(t, []event.Event{event.Down(0), event.Down(1), event.Up(1)}, rec.got)
}

func TestEdgeDetector_UnknownLine(t *testing.T) {
	_, err := NewEdgeDetector(hw.NewSim(quietLogger()), (&recorder{}).poster(),
		[]config.Channel{{Line: "doorbell"}}, quietLogger())
	assert.ErrorContains(t, err, `unknown line "doorbell"`)
}

func TestTowerDetector(t *testing.T) {
	sim := hw.NewSim(quietLogger())
	energy, manager := &recorder{}, &recorder{}
	d := NewTowerDetector(sim, energy.poster(), manager.poster(), quietLogger())
	assert.False(t, d.Check())

	sim.SetDigital(hw.LineSmokeTower, false)
	assert.True(t, d.Check())
	sim.SetDigital(hw.LineSmokeTower, true)
	assert.True(t, d.Check())

	assert.Equal(t, []event.Event{event.New(event.TowerPlugged), event.New(event.TowerUnplugged)}, energy.got)
	assert.Len(t, manager.got, 2)
}

func TestSolarDetector_Threshold(t *testing.T) {
	sim := hw.NewSim(quietLogger())
	energy, manager := &recorder{}, &recorder{}
	d := NewSolarDetector(sim, energy.poster(), manager.poster(), 600, quietLogger())

	sim.SetAnalog(hw.AnalogSolarPanel, 599)
	assert.False(t, d.Check())

	sim.SetAnalog(hw.AnalogSolarPanel, 600)
	assert.True(t, d.Check())

	// Drift is measured from the last reported reading.
	sim.SetAnalog(hw.AnalogSolarPanel, 100)
	assert.False(t, d.Check())
	sim.SetAnalog(hw.AnalogSolarPanel, 0)
	assert.True(t, d.Check())

	assert.Equal(t, []event.Event{event.New(event.SolarPosChange), event.New(event.SolarPosChange)}, energy.got)
	assert.Equal(t, []event.Event{event.New(event.UserMovement), event.New(event.UserMovement)}, manager.got)
}
