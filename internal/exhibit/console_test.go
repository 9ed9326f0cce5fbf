package exhibit

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

func newConsoleRig(t *testing.T) (*rig, *bytes.Buffer) {
	t.Helper()
	r := newRig(t, nil)
	out := &bytes.Buffer{}
	r.ex.Console = NewConsole(r.ex.Sched, r.sim, out, quietLogger())
	return r, out
}

func TestConsole_SetDrivesLine(t *testing.T) {
	r, _ := newConsoleRig(t)

	require.NoError(t, r.ex.Console.Exec("set leaf1 0"))
	assert.False(t, r.sim.Digital(hw.LineLeaf1))

	require.NoError(t, r.ex.Console.Exec("set smoke_tower false"))
	assert.False(t, r.sim.Digital(hw.LineSmokeTower))
}

func TestConsole_Analog(t *testing.T) {
	r, _ := newConsoleRig(t)

	require.NoError(t, r.ex.Console.Exec("analog solar_panel 1500"))
	assert.Equal(t, uint32(1500), r.sim.Analog(hw.AnalogSolarPanel))
}

func TestConsole_Post(t *testing.T) {
	r, _ := newConsoleRig(t)

	require.NoError(t, r.ex.Console.Exec("post energy StartGame 1"))
	r.settle()

	assert.Equal(t, "CoalPowered", r.ex.State("energy"))
}

func TestConsole_Errors(t *testing.T) {
	r, _ := newConsoleRig(t)

	tests := []struct {
		line string
		want string
	}{
		{"dance", `unknown command "dance"`},
		{"set leaf1", "usage: set"},
		{"set doorbell 1", `unknown line "doorbell"`},
		{"set leaf1 maybe", `level "maybe"`},
		{"analog sun 3", `unknown analog channel "sun"`},
		{"analog solar_panel -3", `value "-3"`},
		{"post energy", "usage: post"},
		{"post energy Dance", "Dance"},
		{"post energy StartGame x", `param "x"`},
		{"post nobody StartGame 1", "nobody"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.ErrorContains(t, r.ex.Console.Exec(tt.line), tt.want)
		})
	}
}

func TestConsole_CheckAppliesQueuedLines(t *testing.T) {
	r, out := newConsoleRig(t)

	require.True(t, r.ex.Console.Feed("set leaf1 0"))
	require.True(t, r.ex.Console.Feed("bogus"))
	assert.True(t, r.ex.Console.Check())

	assert.False(t, r.sim.Digital(hw.LineLeaf1))
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
	assert.False(t, r.ex.Console.Check(), "nothing queued")
}

func TestConsole_ReadFrom(t *testing.T) {
	r, _ := newConsoleRig(t)

	in := strings.NewReader("set leaf1 0\n\n  \nanalog solar_panel 10\n")
	require.NoError(t, r.ex.Console.ReadFrom(context.Background(), in))
	r.ex.Console.Check()

	assert.False(t, r.sim.Digital(hw.LineLeaf1))
	assert.Equal(t, uint32(10), r.sim.Analog(hw.AnalogSolarPanel))
}

func TestConsole_FeedFull(t *testing.T) {
	r, _ := newConsoleRig(t)
	for i := 0; i < ConsoleBuffer; i++ {
		require.True(t, r.ex.Console.Feed("status"))
	}
	assert.False(t, r.ex.Console.Feed("status"))
}

func TestConsole_Status(t *testing.T) {
	r, out := newConsoleRig(t)

	require.NoError(t, r.ex.Console.Exec("status"))

	s := out.String()
	assert.Contains(t, s, "game_manager")
	assert.Contains(t, s, "WaitingForTrigger")
	assert.Contains(t, s, "leaf1=1")
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent("start_game", "2")
	require.NoError(t, err)
	assert.Equal(t, event.StartGameN(2), ev)

	ev, err = ParseEvent("votedyes")
	require.NoError(t, err)
	assert.Equal(t, event.New(event.VotedYes), ev)
}
