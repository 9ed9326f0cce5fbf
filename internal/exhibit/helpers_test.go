package exhibit

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// rig is a built exhibit on a simulated board with a trace buffer.
type rig struct {
	t     *testing.T
	ex    *Exhibit
	sim   *hw.Sim
	trace *engine.TraceBuffer
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRig builds the stock exhibit. mutate, if given, edits the config
// before it is validated again and built.
func newRig(t *testing.T, mutate func(cfg *config.Config)) *rig {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
		require.NoError(t, cfg.Validate())
	}

	sim := hw.NewSim(quietLogger())
	trace := &engine.TraceBuffer{}
	ex, err := Build(cfg, sim, WithLogger(quietLogger()), WithObserver(trace))
	require.NoError(t, err)

	r := &rig{t: t, ex: ex, sim: sim, trace: trace}
	r.settle()
	return r
}

// fast makes one main tick 10ms and lines the short table up with it, so
// every timer period is a hundredth of its millisecond value.
func fast(cfg *config.Config) {
	cfg.Tick = 10 * time.Millisecond
	cfg.ShortTick = 10 * time.Millisecond
}

func (r *rig) settle() {
	r.t.Helper()
	_, err := r.ex.Sched.RunUntilIdle(0)
	require.NoError(r.t, err)
}

func (r *rig) advance(ticks int) {
	r.t.Helper()
	require.NoError(r.t, r.ex.Sched.Advance(ticks))
}

func (r *rig) post(service string, ev event.Event) {
	r.t.Helper()
	require.NoError(r.t, r.ex.Sched.Post(service, ev))
	r.settle()
}

func (r *rig) set(line hw.Line, level bool) {
	r.t.Helper()
	r.sim.SetDigital(line, level)
	r.settle()
}

// posts counts the events of the given value accepted into service's
// queue.
func (r *rig) posts(service string, ev event.Event) int {
	n := 0
	for _, rec := range r.trace.Records() {
		if rec.Kind == engine.RecordPost && rec.Service == service && rec.Event == ev {
			n++
		}
	}
	return n
}

// kinds counts the records of one kind for service.
func (r *rig) kinds(kind engine.RecordKind, service string) int {
	n := 0
	for _, rec := range r.trace.Records() {
		if rec.Kind == kind && rec.Service == service {
			n++
		}
	}
	return n
}

func (r *rig) remaining(name string) uint32 {
	r.t.Helper()
	id, ok := r.ex.Sched.Timers().Lookup(name)
	require.True(r.t, ok, "timer %s", name)
	left, _ := r.ex.Sched.Timers().Remaining(id)
	return left
}

func (r *rig) active(name string) bool {
	r.t.Helper()
	id, ok := r.ex.Sched.Timers().Lookup(name)
	require.True(r.t, ok, "timer %s", name)
	return r.ex.Sched.Timers().Active(id)
}

// insertLeaf puts the leaf in correctly and lets the welcome track finish.
func (r *rig) startVisit() {
	r.t.Helper()
	r.set(hw.LineLeaf1, false)
	r.sim.FinishTrack()
	r.settle()
	require.Equal(r.t, "ActiveMultiGame", r.ex.State("game_manager"))
}

func (r *rig) level(b hw.Bank) int {
	return r.ex.Indicators.Level(b)
}
