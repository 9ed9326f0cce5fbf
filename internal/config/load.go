package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.cue
var schemaSource []byte

//go:embed default.cue
var defaultSource []byte

// file mirrors the #Exhibit definition for decoding.
type file struct {
	Tick            string       `json:"tick"`
	ShortTick       string       `json:"short_tick"`
	TimerSlots      int          `json:"timer_slots"`
	ShortTimerSlots int          `json:"short_timer_slots"`
	DB              string       `json:"db"`
	LogLevel        string       `json:"log_level"`
	Services        []Service    `json:"services"`
	Timers          []Timer      `json:"timers"`
	ShortTimers     []Timer      `json:"short_timers"`
	Lists           []List       `json:"lists"`
	Debouncers      []Debouncer  `json:"debouncers"`
	Orchestrator    Orchestrator `json:"orchestrator"`
	Energy          Energy       `json:"energy"`
	Voting          Voting       `json:"voting"`
	Audio           Audio        `json:"audio"`
	Sun             Sun          `json:"sun"`
}

// Default returns the stock exhibit configuration.
func Default() (*Config, error) {
	return Parse(defaultSource, "default.cue")
}

// Parse loads a configuration from CUE source.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return fromValue(ctx, v)
}

// Load reads a configuration from a .cue file, or from every .cue file of
// a directory loaded as one CUE package.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &Error{Field: "path", Message: fmt.Sprintf("config not found: %s", path)}
	}
	if err != nil {
		return nil, &Error{Field: "path", Message: fmt.Sprintf("accessing config: %v", err)}
	}

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Field: "path", Message: fmt.Sprintf("reading config: %v", err)}
		}
		return Parse(src, path)
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return nil, &Error{Field: "path", Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &Error{Field: "path", Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &Error{Field: "path", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &Error{Field: "cue", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return fromValue(ctx, v)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func fromValue(ctx *cue.Context, v cue.Value) (*Config, error) {
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ex := v.LookupPath(cue.ParsePath("exhibit"))
	if !ex.Exists() {
		return nil, &Error{Field: "exhibit", Message: "exhibit is required", Pos: v.Pos()}
	}

	u := schema.LookupPath(cue.ParsePath("#Exhibit")).Unify(ex)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f file
	if err := u.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	return f.build()
}

func (f *file) build() (*Config, error) {
	cfg := &Config{
		TimerSlots:      f.TimerSlots,
		ShortTimerSlots: f.ShortTimerSlots,
		DB:              f.DB,
		LogLevel:        f.LogLevel,
		Services:        f.Services,
		Timers:          f.Timers,
		ShortTimers:     f.ShortTimers,
		Lists:           f.Lists,
		Debouncers:      f.Debouncers,
		Orchestrator:    f.Orchestrator,
		Energy:          f.Energy,
		Voting:          f.Voting,
		Audio:           f.Audio,
		Sun:             f.Sun,
	}

	var err error
	if cfg.Tick, err = parseTick("tick", f.Tick); err != nil {
		return nil, err
	}
	if cfg.ShortTick, err = parseTick("short_tick", f.ShortTick); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseTick(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &Error{Field: field, Message: fmt.Sprintf("invalid duration %q", s)}
	}
	if d <= 0 {
		return 0, &Error{Field: field, Message: fmt.Sprintf("duration must be positive, got %s", d)}
	}
	return d, nil
}

// normalize puts every name in NFC form so that names typed on different
// systems compare equal.
func (c *Config) normalize() {
	n := norm.NFC.String
	for i := range c.Services {
		c.Services[i].Name = n(c.Services[i].Name)
	}
	for _, timers := range [][]Timer{c.Timers, c.ShortTimers} {
		for i := range timers {
			timers[i].Name = n(timers[i].Name)
			timers[i].Responder = n(timers[i].Responder)
		}
	}
	for i := range c.Lists {
		c.Lists[i].Name = n(c.Lists[i].Name)
		for j := range c.Lists[i].Members {
			c.Lists[i].Members[j] = n(c.Lists[i].Members[j])
		}
	}
	for i := range c.Debouncers {
		d := &c.Debouncers[i]
		d.Service = n(d.Service)
		for j := range d.Channels {
			d.Channels[j].Target = n(d.Channels[j].Target)
			d.Channels[j].Timer = n(d.Channels[j].Timer)
		}
	}
	for i := range c.Orchestrator.Games {
		c.Orchestrator.Games[i] = n(c.Orchestrator.Games[i])
	}
	c.Orchestrator.Audio = n(c.Orchestrator.Audio)
	c.Energy.Orchestrator = n(c.Energy.Orchestrator)
	c.Energy.Audio = n(c.Energy.Audio)
	c.Energy.Sun = n(c.Energy.Sun)
	c.Voting.Orchestrator = n(c.Voting.Orchestrator)
}
