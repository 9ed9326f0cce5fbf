package store

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/exhibit/internal/engine"
)

// RunIDGenerator produces run ids.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator produces time-ordered UUIDv7 run ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7, or a random UUID if the clock is
// unavailable.
func (UUIDv7Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Recorder is an engine.Observer that appends every record to a run.
//
// Observers run on the scheduler loop and cannot fail it, so a write
// error is logged once and the recorder stops writing; Err reports it.
type Recorder struct {
	store  *Store
	ctx    context.Context
	runID  string
	logger *slog.Logger

	written int
	err     error
}

// NewRecorder starts a run and returns its recorder.
func (s *Store) NewRecorder(ctx context.Context, runID, config string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.BeginRun(ctx, runID, config); err != nil {
		return nil, err
	}
	return &Recorder{
		store:  s,
		ctx:    ctx,
		runID:  runID,
		logger: logger.With("component", "recorder", "run", runID),
	}, nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Observe implements engine.Observer.
func (r *Recorder) Observe(rec engine.Record) {
	if r.err != nil {
		return
	}
	if err := r.store.WriteRecord(r.ctx, r.runID, rec); err != nil {
		r.err = err
		r.logger.Error("trace recording stopped", "seq", rec.Seq, "error", err)
		return
	}
	r.written++
}

// Written returns the number of records stored.
func (r *Recorder) Written() int {
	return r.written
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

// Close ends the run, even after the recorder's context is cancelled.
func (r *Recorder) Close() error {
	return r.store.EndRun(context.WithoutCancel(r.ctx), r.runID)
}
