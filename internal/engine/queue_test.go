package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/event"
)

func TestRing_FIFO(t *testing.T) {
	r := newRing(3)

	require.True(t, r.Push(event.StartGameN(1)))
	require.True(t, r.Push(event.StartGameN(2)))
	require.True(t, r.Push(event.StartGameN(3)))

	for want := 1; want <= 3; want++ {
		got, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got.Int())
	}

	_, ok := r.Pop()
	assert.False(t, ok, "pop from empty ring should return false")
}

func TestRing_FullRejectsAndKeepsContents(t *testing.T) {
	r := newRing(2)
	require.True(t, r.Push(event.New(event.VotedYes)))
	require.True(t, r.Push(event.New(event.VotedNo)))

	assert.True(t, r.Full())
	assert.False(t, r.Push(event.New(event.SwitchHit)), "push on full ring should fail")
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, []event.Event{
		event.New(event.VotedYes),
		event.New(event.VotedNo),
	}, r.Snapshot())
}

func TestRing_WrapAround(t *testing.T) {
	r := newRing(2)

	// Cycle well past the capacity to exercise the head wrap
	for i := 1; i <= 7; i++ {
		require.True(t, r.Push(event.StartGameN(i)))
		got, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, got.Int())
	}
	assert.Equal(t, 0, r.Len())

	require.True(t, r.Push(event.StartGameN(8)))
	require.True(t, r.Push(event.StartGameN(9)))
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 8, snap[0].Int())
	assert.Equal(t, 9, snap[1].Int())
}

func TestRing_Peek(t *testing.T) {
	r := newRing(1)
	_, ok := r.Peek()
	assert.False(t, ok)

	r.Push(event.New(event.UserMovement))
	got, ok := r.Peek()
	require.True(t, ok)
	assert.Equal(t, event.UserMovement, got.Type)
	assert.Equal(t, 1, r.Len(), "peek must not remove")
}

func TestRing_Clear(t *testing.T) {
	r := newRing(4)
	r.Push(event.New(event.VotedYes))
	r.Push(event.New(event.VotedNo))
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 4, r.Cap())
	assert.Empty(t, r.Snapshot())
}
