package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvTick      = "EXHIBIT_TICK"
	EnvShortTick = "EXHIBIT_SHORT_TICK"
	EnvDB        = "EXHIBIT_DB"
	EnvLogLevel  = "EXHIBIT_LOG_LEVEL"
)

// LoadEnv loads .env files into the process environment. Variables
// already set win. Missing files are skipped; with no arguments ".env" in
// the working directory is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides the runtime knobs from lookup, which is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvTick); ok {
		d, err := parseTick(EnvTick, v)
		if err != nil {
			return err
		}
		c.Tick = d
	}
	if v, ok := lookup(EnvShortTick); ok {
		d, err := parseTick(EnvShortTick, v)
		if err != nil {
			return err
		}
		c.ShortTick = d
	}
	if v, ok := lookup(EnvDB); ok {
		c.DB = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		level := strings.ToLower(strings.TrimSpace(v))
		switch level {
		case "debug", "info", "warn", "error":
			c.LogLevel = level
		default:
			return errorf(EnvLogLevel, "unknown log level %q", v)
		}
	}
	if c.ShortTick > c.Tick {
		return errorf(EnvShortTick, "short tick %s longer than tick %s", c.ShortTick, c.Tick)
	}
	return nil
}

// MapLookup adapts a map, such as the result of godotenv.Read, to ApplyEnv.
func MapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}
