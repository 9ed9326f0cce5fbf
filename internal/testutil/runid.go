package testutil

import "fmt"

// FixedRunID generates the same run id every time.
//
// The same scenario with the same FixedRunID produces byte-identical
// stored traces.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator. If id is empty,
// Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunID) Generate() string {
	return g.id
}

// SequentialRunID generates "test-run-0001", "test-run-0002", ...
// It is not safe for concurrent use.
type SequentialRunID struct {
	n int
}

// Generate returns the next id in sequence.
func (g *SequentialRunID) Generate() string {
	g.n++
	return fmt.Sprintf("test-run-%04d", g.n)
}
