package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a fake wall clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithNow(testutil.NewWallClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a post record with minimal fields.
func createTestRecord(seq int64, service string, ev event.Event) engine.Record {
	return engine.Record{
		Seq:     seq,
		Kind:    engine.RecordPost,
		Service: service,
		Source:  engine.SourceExternal,
		Event:   ev,
	}
}
