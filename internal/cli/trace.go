package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Service  string // optional - filter to one service
	Kind     string // optional - filter to one record kind
	List     bool   // list runs instead of printing one
}

// TraceRecord is one record of the trace timeline.
type TraceRecord struct {
	Seq     int64  `json:"seq"`
	Tick    uint64 `json:"tick"`
	Kind    string `json:"kind"`
	Service string `json:"service"`
	Event   string `json:"event"`
	Source  string `json:"source,omitempty"`
	State   string `json:"state,omitempty"`
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID          string `json:"id"`
	Config      string `json:"config"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Started     string `json:"started"`
	Ended       string `json:"ended,omitempty"`
	Records     int    `json:"records"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      RunInfo       `json:"run"`
	Timeline []TraceRecord `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalRecords int    `json:"total_records"`
	Posts        int    `json:"posts"`
	Dispatches   int    `json:"dispatches"`
	Drops        int    `json:"drops"`
	Deferrals    int    `json:"deferrals"`
	Errors       int    `json:"errors"`
	LastTick     uint64 `json:"last_tick"`
	IsComplete   bool   `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded run",
		Long: `Print the trace of a run recorded by "exhibit run --db".

Every post, drop, dispatch, deferral, recall and error is listed in
sequence order with the tick it happened on.

Examples:
  exhibit trace --db ./exhibit.db --list
  exhibit trace --db ./exhibit.db
  exhibit trace --db ./exhibit.db --run 0192... --service voting
  exhibit trace --db ./exhibit.db --kind drop --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to print (default: latest)")
	cmd.Flags().StringVar(&opts.Service, "service", "", "filter to one service")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one record kind (post|drop|dispatch|defer|recall|error)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	kind, err := parseKindFlag(opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRuns(newOutput(opts.RootOptions, cmd), runs)
	}

	var (
		run   store.Run
		found bool
	)
	if opts.RunID == "" {
		run, found, err = st.LatestRun(ctx)
	} else {
		run, found, err = st.ReadRun(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if !found {
		if opts.RunID == "" {
			return NewExitError(ExitCommandError, "no runs recorded")
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}

	records, err := st.ReadTrace(ctx, run.ID, store.TraceFilter{Service: opts.Service, Kind: kind})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		Run:      runInfo(run),
		Timeline: make([]TraceRecord, 0, len(records)),
		Stats:    TraceStats{TotalRecords: len(records), IsComplete: !run.Ended.IsZero()},
	}
	for _, rec := range records {
		result.Timeline = append(result.Timeline, TraceRecord{
			Seq:     rec.Seq,
			Tick:    rec.Tick,
			Kind:    string(rec.Kind),
			Service: rec.Service,
			Event:   rec.Event.String(),
			Source:  rec.Source,
			State:   rec.State,
		})
		countRecord(&result.Stats, rec)
	}

	return newOutput(opts.RootOptions, cmd).Result(result, run.ID, func(w io.Writer) {
		outputTraceText(w, result, records)
	})
}

func parseKindFlag(s string) (engine.RecordKind, error) {
	if s == "" {
		return "", nil
	}
	switch k := engine.RecordKind(s); k {
	case engine.RecordPost, engine.RecordDrop, engine.RecordDispatch,
		engine.RecordDefer, engine.RecordRecall, engine.RecordError:
		return k, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

func countRecord(s *TraceStats, rec engine.Record) {
	switch rec.Kind {
	case engine.RecordPost:
		s.Posts++
	case engine.RecordDispatch:
		s.Dispatches++
	case engine.RecordDrop:
		s.Drops++
	case engine.RecordDefer:
		s.Deferrals++
	case engine.RecordError:
		s.Errors++
	}
	s.LastTick = max(s.LastTick, rec.Tick)
}

func runInfo(r store.Run) RunInfo {
	info := RunInfo{
		ID:          r.ID,
		Config:      r.Config,
		Fingerprint: r.Fingerprint,
		Started:     r.Started.Format(time.RFC3339),
		Records:     r.Records,
	}
	if !r.Ended.IsZero() {
		info.Ended = r.Ended.Format(time.RFC3339)
	}
	return info
}

func outputRuns(out *Output, runs []store.Run) error {
	infos := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		infos = append(infos, runInfo(r))
	}
	return out.Result(infos, "", func(w io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return
		}
		for _, r := range infos {
			ended := r.Ended
			if ended == "" {
				ended = "open"
			}
			fmt.Fprintf(w, "%s  %s  %s  %6d records  %s\n", r.ID, r.Started, ended, r.Records, r.Config)
		}
	})
}

func outputTraceText(w io.Writer, result TraceResult, records []engine.Record) {
	fmt.Fprintf(w, "Run: %s (config %s, started %s)\n", result.Run.ID, result.Run.Config, result.Run.Started)
	if fp := result.Run.Fingerprint; fp != "" {
		fmt.Fprintf(w, "Fingerprint: %s\n", fp)
	}
	if !result.Stats.IsComplete {
		fmt.Fprintln(w, "Run still open or interrupted")
	}
	fmt.Fprintln(w)

	if len(records) == 0 {
		fmt.Fprintln(w, "No records match.")
		return
	}
	for _, rec := range records {
		fmt.Fprintln(w, rec.String())
	}

	s := result.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d records up to tick %d: %d posts, %d dispatches, %d drops, %d deferrals, %d errors\n",
		s.TotalRecords, s.LastTick, s.Posts, s.Dispatches, s.Drops, s.Deferrals, s.Errors)
}
