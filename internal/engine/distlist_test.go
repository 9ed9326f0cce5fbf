package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/event"
)

func TestDistributionList_PostsToEveryMember(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	l := NewDistributionList("games", a, b)

	require.NoError(t, l.Post(event.New(event.ResetAllGames)))
	assert.Equal(t, []event.Event{event.New(event.ResetAllGames)}, a.events)
	assert.Equal(t, []event.Event{event.New(event.ResetAllGames)}, b.events)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "games", l.Name())
}

func TestDistributionList_ContinuesPastFullMember(t *testing.T) {
	full := &boundedRecorder{room: 0}
	after := &recorder{}
	l := NewDistributionList("audio_done", full, after)

	err := l.Post(event.TrackDone(2))
	assert.True(t, IsQueueFull(err))
	assert.Contains(t, err.Error(), "list audio_done")
	assert.Equal(t, []event.Event{event.TrackDone(2)}, after.events,
		"members after a full queue still receive the event")
}
