package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/exhibit"
	"github.com/roach88/exhibit/internal/hw"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	WithEnv bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool              `json:"valid"`
	Services    []ServiceRow      `json:"services,omitempty"`
	Timers      []TimerRow        `json:"timers,omitempty"`
	ShortTimers []TimerRow        `json:"short_timers,omitempty"`
	Lists       []config.List     `json:"lists,omitempty"`
	Errors      []ValidationIssue `json:"errors,omitempty"`
}

// ServiceRow is one line of the service table, in priority order.
type ServiceRow struct {
	Priority int    `json:"priority"`
	Name     string `json:"name"`
	Queue    int    `json:"queue"`
	State    string `json:"state"`
}

// TimerRow is one bound timer slot.
type TimerRow struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Responder string `json:"responder"`
}

// ValidationIssue is one configuration problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate a configuration",
		Long: `Validate an exhibit configuration without running it.

Loads the configuration (the stock exhibit when no path is given), builds
and initializes the scheduler on the simulated board, and prints the
service, timer and distribution list tables.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.WithEnv, "env", false, "apply .env and EXHIBIT_* overrides before validating")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	out := newOutput(opts.RootOptions, cmd)

	cfg, err := LoadConfig(LoadOptions{Path: path, SkipEnv: !opts.WithEnv})
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code == ErrCodeNotFound {
			_ = out.Fail(loadErr.Code, loadErr.Message, nil, nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		return outputValidationErrors(out, issuesFrom(err))
	}
	out.Debugf("Loaded %d service(s), %d timer(s), %d short timer(s)",
		len(cfg.Services), len(cfg.Timers), len(cfg.ShortTimers))

	quiet := newLogger(io.Discard, false, "")
	ex, err := exhibit.Build(cfg, hw.NewSim(quiet), exhibit.WithLogger(quiet))
	if err != nil {
		return outputValidationErrors(out, []ValidationIssue{{Code: ErrCodeBuild, Message: err.Error()}})
	}

	return outputValidateSuccess(out, tables(ex))
}

// tables reads the initialized scheduler's tables.
func tables(ex *exhibit.Exhibit) ValidationResult {
	r := ValidationResult{Valid: true, Lists: ex.Config.Lists}
	for i, s := range ex.Sched.Services() {
		r.Services = append(r.Services, ServiceRow{Priority: i, Name: s.Name, Queue: s.QueueCap, State: s.State})
	}
	for _, b := range ex.Sched.Timers().Bindings() {
		r.Timers = append(r.Timers, TimerRow{ID: int(b.ID), Name: b.Name, Responder: b.Responder})
	}
	for _, b := range ex.Sched.ShortTimers().Bindings() {
		r.ShortTimers = append(r.ShortTimers, TimerRow{ID: int(b.ID), Name: b.Name, Responder: b.Responder})
	}
	return r
}

// issuesFrom splits a load error into one issue per line.
func issuesFrom(err error) []ValidationIssue {
	code, line := ErrCodeConfig, 0
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		err = errors.New(loadErr.Message)
	}
	var issues []ValidationIssue
	for _, msg := range strings.Split(err.Error(), "\n") {
		if msg = strings.TrimSpace(msg); msg != "" {
			issues = append(issues, ValidationIssue{Code: code, Message: msg, Line: line})
		}
	}
	if len(issues) == 0 {
		issues = append(issues, ValidationIssue{Code: code, Message: "configuration rejected"})
	}
	return issues
}

// outputValidateSuccess outputs the validated tables.
func outputValidateSuccess(out *Output, r ValidationResult) error {
	return out.Result(r, "", func(w io.Writer) {
		fmt.Fprintln(w, "✓ Configuration valid")
		fmt.Fprintln(w, "\nServices (lowest priority first):")
		for _, s := range r.Services {
			fmt.Fprintf(w, "  %d  %-14s queue %-3d %s\n", s.Priority, s.Name, s.Queue, s.State)
		}
		writeTimers(w, "Timers", r.Timers)
		writeTimers(w, "Short timers", r.ShortTimers)
		if len(r.Lists) > 0 {
			fmt.Fprintln(w, "\nLists:")
			for _, l := range r.Lists {
				fmt.Fprintf(w, "  %-14s %s\n", l.Name, strings.Join(l.Members, ", "))
			}
		}
	})
}

func writeTimers(w io.Writer, title string, rows []TimerRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, t := range rows {
		fmt.Fprintf(w, "  %2d  %-14s -> %s\n", t.ID, t.Name, t.Responder)
	}
}

// outputValidationErrors outputs configuration problems. They are command
// errors (exit code 2).
func outputValidationErrors(out *Output, issues []ValidationIssue) error {
	msg := fmt.Sprintf("%d validation error(s)", len(issues))
	_ = out.Fail(issues[0].Code, msg, ValidationResult{Valid: false, Errors: issues}, func(w io.Writer) {
		fmt.Fprintf(w, "✗ %s\n", msg)
		for _, is := range issues {
			if is.Line > 0 {
				fmt.Fprintf(w, "  [%s] line %d: %s\n", is.Code, is.Line, is.Message)
				continue
			}
			fmt.Fprintf(w, "  [%s] %s\n", is.Code, is.Message)
		}
	})
	return NewExitError(ExitCommandError, msg)
}
