package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/event"
)

func TestDefault_StockExhibit(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, time.Millisecond, cfg.Tick)
	assert.Equal(t, 100*time.Microsecond, cfg.ShortTick)
	assert.Equal(t, 16, cfg.TimerSlots)
	assert.Equal(t, 8, cfg.ShortTimerSlots)
	assert.Equal(t, "info", cfg.LogLevel)

	var names []string
	for _, s := range cfg.Services {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"game_manager", "energy", "voting", "meat_switch", "buttons", "sun", "audio"}, names)

	assert.Len(t, cfg.Timers, 9)
	assert.Len(t, cfg.ShortTimers, 3)
	assert.Len(t, cfg.Lists, 2)

	assert.Equal(t, []string{"energy", "voting"}, cfg.Orchestrator.Games)
	assert.Equal(t, 10000, cfg.Orchestrator.NextGameMS)
	assert.Equal(t, 30000, cfg.Orchestrator.InactivityMS)
	assert.Equal(t, 60000, cfg.Orchestrator.GameEndMS)
	assert.Equal(t, 4, cfg.Orchestrator.Temperature.Initial)
	assert.Equal(t, 8, cfg.Orchestrator.Temperature.Max)
	assert.Equal(t, []bool{true, false, true, true, false, true}, cfg.Voting.Answers)
	assert.Equal(t, 12, cfg.Sun.Steps)
}

func TestDefault_ResolvesChannelEvents(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	buttons, ok := cfg.Debouncer("buttons")
	require.True(t, ok)
	assert.True(t, buttons.Short)
	require.Len(t, buttons.Channels, 3)
	assert.Equal(t, event.VotedYes, buttons.Channels[0].PressEvent)
	assert.Equal(t, event.VotedNo, buttons.Channels[1].PressEvent)
	assert.Equal(t, event.SwitchHit, buttons.Channels[2].PressEvent)
	assert.Equal(t, event.NoEvent, buttons.Channels[0].ReleaseEvent)

	meat, ok := cfg.Debouncer("meat_switch")
	require.True(t, ok)
	require.Len(t, meat.Channels, 1)
	assert.False(t, meat.Channels[0].ActiveHigh)
	assert.Equal(t, event.UserMovement, meat.Channels[0].PressEvent)
}

func TestConfig_Ticks(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, uint32(10000), cfg.Ticks(10000))
	assert.Equal(t, uint32(1000), cfg.ShortTicks(100))

	cfg.Tick = 10 * time.Millisecond
	assert.Equal(t, uint32(1000), cfg.Ticks(10000))
}

func TestParse_Overrides(t *testing.T) {
	src := `
exhibit: {
	tick: "10ms"
	orchestrator: {
		temperature: initial: 2
		next_game_ms: 500
	}
	voting: {
		items: 2
		answers: [false, true]
	}
}
`
	cfg, err := Parse([]byte(src), "override.cue")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Tick)
	assert.Equal(t, 2, cfg.Orchestrator.Temperature.Initial)
	assert.Equal(t, 8, cfg.Orchestrator.Temperature.Max, "untouched default")
	assert.Equal(t, 500, cfg.Orchestrator.NextGameMS)
	assert.Equal(t, 2, cfg.Voting.Items)
	assert.Len(t, cfg.Services, 7, "tables keep their defaults")
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte(`exhibit: { tock: "1ms" }`), "bad.cue")
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "cue", cerr.Field)
}

func TestParse_MissingExhibit(t *testing.T) {
	_, err := Parse([]byte(`other: 1`), "empty.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhibit is required")
}

func TestParse_SyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse([]byte("exhibit: {\n\ttick: \n"), "broken.cue")
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.True(t, cerr.Pos.IsValid())
	assert.True(t, strings.HasPrefix(err.Error(), "broken.cue:"), err.Error())
}

func TestParse_BadTick(t *testing.T) {
	_, err := Parse([]byte(`exhibit: tick: "soon"`), "tick.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "soon"`)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	src := `
exhibit: {
	services: [
		{name: "game_manager", kind: "orchestrator", queue: 5},
		{name: "game_manager", kind: "energy", queue: 3},
		{name: "buttons", kind: "debouncer", queue: 5},
	]
	timers: [
		{name: "next_game", id: 0, responder: "game_manager"},
		{name: "late", id: 20, responder: "ghost"},
	]
	short_timers: []
	lists: [{name: "games", members: ["voting"]}]
	debouncers: [{
		service: "buttons"
		debounce_ms: 10
		channels: [{line: "doorbell", press: "Init", target: "nobody", timer: "next_game"}]
	}]
	orchestrator: games: ["energy"]
}
`
	_, err := Parse([]byte(src), "broken.cue")
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		`service "game_manager" defined twice`,
		`timer "late" id 20 out of range [0, 16)`,
		`unknown responder "ghost"`,
		`list "games": unknown member "voting"`,
		`unknown line "doorbell"`,
		`reserved event Init cannot be forwarded`,
		`unknown target "nobody"`,
		`timer "next_game" responds to "game_manager", not "buttons"`,
		`unknown game "energy"`,
		`orchestrator.audio: unknown service "audio"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_PayloadEventCannotBeForwarded(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Debouncers[0].Channels[0].Press = "PlayAudio"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carries a payload")
}

func TestValidate_AnswersMatchItems(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Voting.Items = 4
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "6 answers for 4 items")
}

func TestValidate_DebouncerWithoutSection(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Debouncers = cfg.Debouncers[:1]
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no configuration")
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exhibit.cue")
	require.NoError(t, os.WriteFile(path, []byte(`exhibit: db: "trace.db"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "trace.db", cfg.DB)
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"),
		[]byte("package site\n\nexhibit: log_level: \"debug\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"),
		[]byte("package site\n\nexhibit: audio: pulse_ms: 250\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250, cfg.Audio.PulseMS)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config not found")
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files found")
}

func TestNormalize_NFC(t *testing.T) {
	// Decomposed "café": "e" followed by a combining acute accent.
	src := "exhibit: {\n" +
		"\tservices: [\n" +
		"\t\t{name: \"game_manager\", kind: \"orchestrator\", queue: 5},\n" +
		"\t\t{name: \"audio\", kind: \"audio\", queue: 3},\n" +
		"\t\t{name: \"cafe\u0301\", kind: \"sun\", queue: 2},\n" +
		"\t]\n" +
		"\ttimers: [{name: \"next_game\", id: 0, responder: \"cafe\u0301\"}]\n" +
		"\tshort_timers: []\n" +
		"\tlists: []\n" +
		"\tdebouncers: []\n" +
		"\torchestrator: games: []\n" +
		"}\n"

	cfg, err := Parse([]byte(src), "nfc.cue")
	require.NoError(t, err)
	_, ok := cfg.Service("caf\u00e9")
	assert.True(t, ok)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	env, err := godotenv.Unmarshal("EXHIBIT_TICK=2ms\nEXHIBIT_DB=/tmp/run.db\nEXHIBIT_LOG_LEVEL=DEBUG\n")
	require.NoError(t, err)

	require.NoError(t, cfg.ApplyEnv(MapLookup(env)))
	assert.Equal(t, 2*time.Millisecond, cfg.Tick)
	assert.Equal(t, "/tmp/run.db", cfg.DB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	err = cfg.ApplyEnv(MapLookup(map[string]string{EnvLogLevel: "loud"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")

	err = cfg.ApplyEnv(MapLookup(map[string]string{EnvShortTick: "5ms"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longer than tick")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, godotenv.Write(map[string]string{"EXHIBIT_TEST_LOADENV": "yes"}, path))
	t.Cleanup(func() { os.Unsetenv("EXHIBIT_TEST_LOADENV") })

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "yes", os.Getenv("EXHIBIT_TEST_LOADENV"))
}
