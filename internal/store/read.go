package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/exhibit/internal/engine"
)

// Run describes one stored scheduler lifetime.
type Run struct {
	ID     string
	Config string
	// Fingerprint is empty for runs that were never tagged.
	Fingerprint string
	Started     time.Time
	// Ended is zero while the run is open.
	Ended   time.Time
	Records int
}

// ListRuns returns every run, oldest first.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, config, fingerprint, started_at, ended_at, records
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run. The boolean is false if no such run exists.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, config, fingerprint, started_at, ended_at, records
		FROM runs
		WHERE id = ?
	`, runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&id)
	if err == sql.ErrNoRows {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("query latest run: %w", err)
	}
	return s.ReadRun(ctx, id)
}

// TraceFilter narrows ReadTrace. Zero fields match everything.
type TraceFilter struct {
	Service string
	Kind    engine.RecordKind
}

// ReadTrace returns a run's records ordered by seq.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadTrace(ctx context.Context, runID string, f TraceFilter) ([]engine.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tick, kind, service, source, event, param, state
		FROM records
		WHERE run_id = ?
		  AND (? = '' OR service = ?)
		  AND (? = '' OR kind = ?)
		ORDER BY seq ASC
	`, runID, f.Service, f.Service, string(f.Kind), string(f.Kind))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []engine.Record{}
	for rows.Next() {
		var (
			rec   engine.Record
			tick  int64
			kind  string
			name  string
			param int
		)
		if err := rows.Scan(&rec.Seq, &tick, &kind, &rec.Service, &rec.Source, &name, &param, &rec.State); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Tick = uint64(tick)
		rec.Kind = engine.RecordKind(kind)
		if rec.Event, err = unmarshalEvent(name, param); err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.Seq, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r       Run
		started string
		ended   sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Config, &r.Fingerprint, &started, &ended, &r.Records); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.Started, err = unmarshalTime(started); err != nil {
		return Run{}, err
	}
	if ended.Valid {
		if r.Ended, err = unmarshalTime(ended.String); err != nil {
			return Run{}, err
		}
	}
	return r, nil
}
