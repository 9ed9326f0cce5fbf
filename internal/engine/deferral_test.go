package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/event"
)

// boundedRecorder accepts at most room events.
type boundedRecorder struct {
	room   int
	events []event.Event
}

func (b *boundedRecorder) Post(ev event.Event) error {
	if len(b.events) >= b.room {
		return NewQueueFullError("owner", "service", b.room)
	}
	b.events = append(b.events, ev)
	return nil
}

func TestDeferralQueue_RecallPreservesOrder(t *testing.T) {
	owner := &recorder{}
	d := NewDeferralQueue(owner, 4)

	require.NoError(t, d.Defer(event.New(event.ResetAllGames)))
	require.NoError(t, d.Defer(event.New(event.VotedYes)))
	assert.Equal(t, 2, d.Len())

	n, err := d.Recall()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []event.Event{
		event.New(event.ResetAllGames),
		event.New(event.VotedYes),
	}, owner.events)
	assert.Equal(t, 0, d.Len())
}

func TestDeferralQueue_DeferFull(t *testing.T) {
	d := NewDeferralQueue(&recorder{}, 1)
	require.NoError(t, d.Defer(event.New(event.VotedYes)))

	err := d.Defer(event.New(event.VotedNo))
	assert.True(t, IsQueueFull(err))
	assert.Equal(t, []event.Event{event.New(event.VotedYes)}, d.Pending())
}

func TestDeferralQueue_RecallIntoSaturatedOwnerKeepsRemainder(t *testing.T) {
	owner := &boundedRecorder{room: 1}
	d := NewDeferralQueue(owner, 3)
	require.NoError(t, d.Defer(event.StartGameN(1)))
	require.NoError(t, d.Defer(event.StartGameN(2)))
	require.NoError(t, d.Defer(event.StartGameN(3)))

	n, err := d.Recall()
	assert.Equal(t, 1, n)
	assert.True(t, IsQueueFull(err))
	assert.Equal(t, []event.Event{event.StartGameN(2), event.StartGameN(3)}, d.Pending())

	owner.room = 10
	n, err = d.Recall()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []event.Event{
		event.StartGameN(1),
		event.StartGameN(2),
		event.StartGameN(3),
	}, owner.events)
}

func TestDeferralQueue_RecallEmpty(t *testing.T) {
	d := NewDeferralQueue(&recorder{}, 2)
	n, err := d.Recall()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeferralQueue_RecallReplaysTimeoutFromRun(t *testing.T) {
	var (
		ref TimerRef
		dq  *DeferralQueue
	)
	s := newScheduler()
	p := &fakeService{
		name: "game",
		onInit: func(p *fakeService, fw Framework) error {
			dq = fw.NewDeferralQueue(2)
			var err error
			ref, err = fw.Timer("next_game")
			return err
		},
		onRun: func(p *fakeService, ev event.Event) event.Event {
			switch {
			case ev.Is(event.Init):
				if err := ref.Arm(1); err != nil {
					return event.New(event.Error)
				}
			case ref.Fired(ev) && dq.Len() == 0 && len(p.got) == 2:
				if err := dq.Defer(ev); err != nil {
					return event.New(event.Error)
				}
			case ev.Is(event.SwitchHit):
				if _, err := dq.Recall(); err != nil {
					return event.New(event.Error)
				}
			}
			return event.New(event.NoEvent)
		},
	}
	mustRegister(t, s, p, 4)
	s.BindTimer("next_game", 2, "game")
	require.NoError(t, s.Initialize())
	_, err := s.RunUntilIdle(0)
	require.NoError(t, err)

	require.NoError(t, s.Advance(1))
	require.Len(t, p.got, 2)
	assert.Equal(t, 1, dq.Len())

	require.NoError(t, s.Post("game", event.New(event.SwitchHit)))
	_, err = s.RunUntilIdle(0)
	require.NoError(t, err)

	require.Len(t, p.got, 4)
	assert.Equal(t, event.TimeoutOf(2), p.got[3])
	assert.Equal(t, 0, dq.Len())
}

func TestDeferralQueue_FrameworkQueueFullNamesOwner(t *testing.T) {
	var dq *DeferralQueue
	s := newScheduler()
	mustRegister(t, s, &fakeService{
		name: "door",
		onInit: func(p *fakeService, fw Framework) error {
			dq = fw.NewDeferralQueue(1)
			return nil
		},
	}, 2)
	require.NoError(t, s.Initialize())

	require.NoError(t, dq.Defer(event.New(event.VotedYes)))
	err := dq.Defer(event.New(event.VotedNo))
	require.True(t, IsQueueFull(err))
	assert.Contains(t, err.Error(), "door")
}
