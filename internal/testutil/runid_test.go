package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunID(t *testing.T) {
	g := NewFixedRunID("run-1")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-1", g.Generate())
}

func TestFixedRunID_Default(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunID("").Generate())
}

func TestSequentialRunID(t *testing.T) {
	var g SequentialRunID
	assert.Equal(t, "test-run-0001", g.Generate())
	assert.Equal(t, "test-run-0002", g.Generate())
}
