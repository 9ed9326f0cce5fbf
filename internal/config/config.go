// Package config loads the exhibit configuration: the service table, the
// timer and list bindings, and each service's tuning.
//
// Configuration is written in CUE. Every file is unified with an embedded
// schema (schema.cue) that supplies types and the stock exhibit as
// defaults, so an empty `exhibit: {}` is a complete configuration.
// Environment variables (optionally from a .env file) override the
// runtime knobs.
package config

import (
	"time"

	"github.com/roach88/exhibit/internal/event"
)

// Kind selects the service implementation for a table entry.
type Kind string

const (
	KindOrchestrator Kind = "orchestrator"
	KindEnergy       Kind = "energy"
	KindVoting       Kind = "voting"
	KindDebouncer    Kind = "debouncer"
	KindSun          Kind = "sun"
	KindAudio        Kind = "audio"
)

// Config is a fully resolved exhibit configuration.
type Config struct {
	Tick            time.Duration
	ShortTick       time.Duration
	TimerSlots      int
	ShortTimerSlots int
	DB              string
	LogLevel        string

	// Services in priority order, lowest first.
	Services    []Service
	Timers      []Timer
	ShortTimers []Timer
	Lists       []List
	Debouncers  []Debouncer

	Orchestrator Orchestrator
	Energy       Energy
	Voting       Voting
	Audio        Audio
	Sun          Sun
}

// Service is one entry of the service table.
type Service struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Queue int    `json:"queue"`
}

// Timer binds a named slot to its responder.
type Timer struct {
	Name      string `json:"name"`
	ID        int    `json:"id"`
	Responder string `json:"responder"`
}

// List is a named distribution list.
type List struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Channel is one debounced input line.
type Channel struct {
	Line       string `json:"line"`
	ActiveHigh bool   `json:"active_high"`
	Press      string `json:"press"`
	Release    string `json:"release"`
	Target     string `json:"target"`
	Timer      string `json:"timer"`

	// Resolved from Press and Release; event.NoEvent when Release is empty.
	PressEvent   event.Type `json:"-"`
	ReleaseEvent event.Type `json:"-"`
}

// Debouncer configures one debouncer service.
type Debouncer struct {
	Service    string    `json:"service"`
	Short      bool      `json:"short"`
	DebounceMS int       `json:"debounce_ms"`
	Channels   []Channel `json:"channels"`
}

// Orchestrator configures the game manager.
type Orchestrator struct {
	Games        []string `json:"games"`
	Audio        string   `json:"audio"`
	NextGameMS   int      `json:"next_game_ms"`
	InactivityMS int      `json:"inactivity_ms"`
	GameEndMS    int      `json:"game_end_ms"`
	Temperature  struct {
		Initial int `json:"initial"`
		Max     int `json:"max"`
	} `json:"temperature"`
	Tracks struct {
		Welcome   int `json:"welcome"`
		LeafError int `json:"leaf_error"`
	} `json:"tracks"`
}

// Energy configures the energy production game.
type Energy struct {
	Orchestrator    string `json:"orchestrator"`
	Audio           string `json:"audio"`
	Sun             string `json:"sun"`
	SunPeriodMS     int    `json:"sun_period_ms"`
	CoalPeriodMS    int    `json:"coal_period_ms"`
	SolarPeriodMS   int    `json:"solar_period_ms"`
	SunVoltageStart int    `json:"sun_voltage_start"`
	SunVoltageStep  int    `json:"sun_voltage_step"`
	DriftThreshold  int    `json:"drift_threshold"`
	WellAligned     int    `json:"well_aligned"`
	MediumAligned   int    `json:"medium_aligned"`
	CoalLevel       int    `json:"coal_level"`
	SolarLevel      int    `json:"solar_level"`
}

// Voting configures the voting game.
type Voting struct {
	Orchestrator string `json:"orchestrator"`
	Items        int    `json:"items"`
	// Answers[i] is true when "yes" is the correct answer to item i.
	Answers      []bool `json:"answers"`
	VoteWindowMS int    `json:"vote_window_ms"`
	Deferral     int    `json:"deferral"`
}

// Audio configures the audio board driver.
type Audio struct {
	PulseMS int `json:"pulse_ms"`
}

// Sun configures the sun actuator.
type Sun struct {
	Steps int `json:"steps"`
}

// Service returns the table entry with the given name.
func (c *Config) Service(name string) (Service, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}

// ServicesOfKind returns the table entries of one kind, in priority order.
func (c *Config) ServicesOfKind(k Kind) []Service {
	var out []Service
	for _, s := range c.Services {
		if s.Kind == k {
			out = append(out, s)
		}
	}
	return out
}

// Debouncer returns the debouncer section for a service.
func (c *Config) Debouncer(service string) (Debouncer, bool) {
	for _, d := range c.Debouncers {
		if d.Service == service {
			return d, true
		}
	}
	return Debouncer{}, false
}

// Ticks converts milliseconds to main-table ticks.
func (c *Config) Ticks(ms int) uint32 {
	return durationTicks(time.Duration(ms)*time.Millisecond, c.Tick)
}

// ShortTicks converts milliseconds to short-table ticks.
func (c *Config) ShortTicks(ms int) uint32 {
	return durationTicks(time.Duration(ms)*time.Millisecond, c.ShortTick)
}

func durationTicks(d, tick time.Duration) uint32 {
	if tick <= 0 {
		return 0
	}
	return uint32(d / tick)
}
