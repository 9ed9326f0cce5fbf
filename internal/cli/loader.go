package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/exhibit/internal/config"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeConfig = "E010" // Configuration rejected
	ErrCodeEnv    = "E011" // Environment override rejected
	ErrCodeBuild  = "E020" // Scheduler build or initialization failed
	ErrCodeStore  = "E030" // Trace store error
)

// LoadError represents an error that occurred while loading a
// configuration.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadOptions selects a configuration and its environment overrides.
type LoadOptions struct {
	// Path is a .cue file or a directory of them. Empty means the stock
	// exhibit.
	Path string

	// EnvFiles are .env files loaded before the overrides are read. Empty
	// means ".env" if present.
	EnvFiles []string

	// Lookup reads the overrides; nil means os.LookupEnv.
	Lookup func(string) (string, bool)

	// SkipEnv leaves the environment out entirely.
	SkipEnv bool
}

// LoadConfig loads and validates a configuration, then applies the
// EXHIBIT_* environment overrides.
func LoadConfig(opts LoadOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Path == "" {
		cfg, err = config.Default()
	} else {
		if _, statErr := os.Stat(opts.Path); os.IsNotExist(statErr) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config not found: %s", opts.Path)}
		}
		cfg, err = config.Load(opts.Path)
	}
	if err != nil {
		return nil, configLoadError(ErrCodeConfig, err)
	}

	if opts.SkipEnv {
		return cfg, nil
	}
	if err := config.LoadEnv(opts.EnvFiles...); err != nil {
		return nil, &LoadError{Code: ErrCodeEnv, Message: err.Error()}
	}
	if err := cfg.ApplyEnv(opts.Lookup); err != nil {
		return nil, configLoadError(ErrCodeEnv, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, configLoadError(ErrCodeConfig, err)
	}
	return cfg, nil
}

// configLoadError keeps the CUE position of a config.Error.
func configLoadError(code string, err error) *LoadError {
	var cerr *config.Error
	if errors.As(err, &cerr) && cerr.Pos.IsValid() {
		return &LoadError{Code: code, Message: cerr.Field + ": " + cerr.Message, Pos: cerr.Pos}
	}
	return &LoadError{Code: code, Message: err.Error()}
}

// newLogger builds the process logger. --verbose forces debug; otherwise
// level comes from the configuration.
func newLogger(w io.Writer, verbose bool, level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	if verbose {
		l = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
