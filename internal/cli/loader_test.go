package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := LoadConfig(LoadOptions{SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, cfg.Tick)
	assert.Len(t, cfg.Services, 7)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "site.cue", `exhibit: tick: "5ms"`)

	cfg, err := LoadConfig(LoadOptions{Path: path, SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cfg.Tick)
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(LoadOptions{Path: "/nonexistent/site.cue"})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `exhibit: tick: 12`)

	_, err := LoadConfig(LoadOptions{Path: path, SkipEnv: true})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeConfig, loadErr.Code)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	env := map[string]string{
		config.EnvTick:     "2ms",
		config.EnvDB:       "/tmp/exhibit.db",
		config.EnvLogLevel: "debug",
	}
	cfg, err := LoadConfig(LoadOptions{
		EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env")},
		Lookup:   config.MapLookup(env),
	})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Millisecond, cfg.Tick)
	assert.Equal(t, "/tmp/exhibit.db", cfg.DB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_BadEnv(t *testing.T) {
	_, err := LoadConfig(LoadOptions{
		EnvFiles: []string{filepath.Join(t.TempDir(), "missing.env")},
		Lookup:   config.MapLookup(map[string]string{config.EnvLogLevel: "loud"}),
	})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeEnv, loadErr.Code)
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Message: "config not found: x.cue"}
	assert.Equal(t, "E005: config not found: x.cue", err.Error())
}

func TestNewLogger_Levels(t *testing.T) {
	quiet := newLogger(os.Stderr, false, "error")
	assert.False(t, quiet.Enabled(t.Context(), -4))

	loud := newLogger(os.Stderr, true, "error")
	assert.True(t, loud.Enabled(t.Context(), -4), "--verbose wins over the configured level")
}
