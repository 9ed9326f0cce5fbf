package store

import (
	"context"
	"fmt"

	"github.com/roach88/exhibit/internal/engine"
)

// BeginRun inserts a run record stamped with the current wall time.
// config names the configuration the run was built from.
func (s *Store) BeginRun(ctx context.Context, runID, config string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, config, started_at)
		VALUES (?, ?, ?)
	`, runID, config, marshalTime(s.now()))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// EndRun stamps the run's end time and record count.
func (s *Store) EndRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET ended_at = ?,
		    records = (SELECT COUNT(*) FROM records WHERE run_id = ?)
		WHERE id = ?
	`, marshalTime(s.now()), runID, runID)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end run: unknown run %q", runID)
	}
	return nil
}

// TagRun records the fingerprint of the configuration a run was built from.
func (s *Store) TagRun(ctx context.Context, runID, fingerprint string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET fingerprint = ? WHERE id = ?
	`, fingerprint, runID)
	if err != nil {
		return fmt.Errorf("tag run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tag run: unknown run %q", runID)
	}
	return nil
}

// WriteRecord appends one trace record to a run.
// Uses ON CONFLICT DO NOTHING for idempotency: a record is identified by
// its run and seq, so writing the same record twice is silently ignored.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteRecord(ctx context.Context, runID string, rec engine.Record) error {
	name, param := marshalEvent(rec.Event)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records
		(run_id, seq, tick, kind, service, source, event, param, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		rec.Seq,
		int64(rec.Tick),
		string(rec.Kind),
		rec.Service,
		rec.Source,
		name,
		param,
		rec.State,
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
