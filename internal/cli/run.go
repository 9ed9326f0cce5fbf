package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/exhibit/internal/exhibit"
	"github.com/roach88/exhibit/internal/hw"
	"github.com/roach88/exhibit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config    string
	Database  string
	EnvFiles  []string
	Duration  time.Duration
	NoConsole bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// RunSummary is printed when the loop stops.
type RunSummary struct {
	RunID    string            `json:"run_id,omitempty"`
	Ticks    uint64            `json:"ticks"`
	Cycles   uint64            `json:"cycles"`
	Posted   uint64            `json:"posted"`
	Dropped  uint64            `json:"dropped"`
	Errors   uint64            `json:"errors"`
	Recorded int               `json:"recorded"`
	States   map[string]string `json:"states"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the exhibit on the simulated board",
		Long: `Run the exhibit in real time on the simulated board.

The scheduler ticks at the configured rates until interrupted (or until
--duration elapses). Console commands are read from stdin:

  set <line> <0|1>              drive a digital input
  analog <channel> <millivolts> drive an analog input
  post <service> <event> [n]    post an event
  status                        print service states and the board

With --db (or EXHIBIT_DB) every trace record is stored under a new run id.

Examples:
  exhibit run
  exhibit run --config ./site.cue --db ./exhibit.db
  exhibit run --duration 30s --no-console --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExhibit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a .cue config file or directory (default: stock exhibit)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (overrides EXHIBIT_DB)")
	cmd.Flags().StringSliceVar(&opts.EnvFiles, "env-file", nil, ".env files to load (default: .env if present)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&opts.NoConsole, "no-console", false, "do not read console commands from stdin")

	return cmd
}

func runExhibit(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := LoadConfig(LoadOptions{Path: opts.Config, EnvFiles: opts.EnvFiles})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose, cfg.LogLevel)
	slog.SetDefault(logger)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	buildOpts := []exhibit.Option{exhibit.WithLogger(logger)}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.DB
	}
	var rec *store.Recorder
	if dbPath != "" {
		logger.Info("opening trace database", "path", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		gen := opts.RunIDs
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		source := opts.Config
		if source == "" {
			source = "default"
		}
		// Records written as the deadline passes must still land.
		rec, err = st.NewRecorder(parentCtx, gen.Generate(), source, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start run", err)
		}
		fingerprint, err := cfg.Fingerprint()
		if err == nil {
			err = st.TagRun(parentCtx, rec.RunID(), fingerprint)
		}
		if err != nil {
			_ = rec.Close()
			return WrapExitError(ExitCommandError, "failed to tag run", err)
		}
		defer func() {
			if closeErr := rec.Close(); closeErr != nil {
				logger.Error("error ending run", "run", rec.RunID(), "error", closeErr)
			}
		}()
		buildOpts = append(buildOpts, exhibit.WithObserver(rec))
	}

	if !opts.NoConsole {
		buildOpts = append(buildOpts, exhibit.WithConsole(cmd.OutOrStdout()))
	}

	ex, err := exhibit.Build(cfg, hw.NewSim(logger), buildOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build exhibit", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if ex.Console != nil {
		go func() {
			if err := ex.Console.ReadFrom(ctx, cmd.InOrStdin()); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("console input stopped", "error", err)
			}
		}()
	}

	out := newOutput(opts.RootOptions, cmd)
	if !out.JSON() {
		fmt.Fprintln(out.Out, "Exhibit running. Press Ctrl-C to stop.")
	}

	runErr := ex.Sched.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "scheduler error", runErr)
	}
	logger.Info("exhibit stopped")

	return outputRunSummary(out, summarize(ex, rec))
}

func summarize(ex *exhibit.Exhibit, rec *store.Recorder) RunSummary {
	stats := ex.Sched.Stats()
	s := RunSummary{
		Ticks:   ex.Sched.Clock().Ticks(),
		Cycles:  stats.Cycles,
		Posted:  stats.Posted,
		Dropped: stats.Dropped,
		Errors:  stats.Errors,
		States:  make(map[string]string),
	}
	for _, svc := range ex.Sched.Services() {
		s.States[svc.Name] = svc.State
	}
	if rec != nil {
		s.RunID = rec.RunID()
		s.Recorded = rec.Written()
	}
	return s
}

func outputRunSummary(out *Output, s RunSummary) error {
	return out.Result(s, s.RunID, func(w io.Writer) {
		fmt.Fprintf(w, "Stopped after %d ticks, %d cycles (%d posted, %d dropped, %d errors)\n",
			s.Ticks, s.Cycles, s.Posted, s.Dropped, s.Errors)
		if s.RunID != "" {
			fmt.Fprintf(w, "Recorded %d records as run %s\n", s.Recorded, s.RunID)
		}
	})
}
