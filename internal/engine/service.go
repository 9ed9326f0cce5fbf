package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/event"
)

// ServiceID is a service's slot in the scheduler. It doubles as its
// dispatch priority: 0 is the lowest.
type ServiceID uint8

// Service is one run-to-completion state machine hosted by the Scheduler.
//
// Init is called once, in ascending priority order, before any event is
// delivered. It resolves peers, timers and lists through fw; a returned
// error halts startup. The scheduler posts an Init event to every service
// after all Init calls succeed.
//
// Run consumes exactly one event and returns a status event: NoEvent when
// all went well, Error when the service wants the failure logged. Run must
// not block. Events that have no transition in the current state are
// ignored (see Ignore), never a crash.
type Service interface {
	Init(fw Framework) error
	Run(ev event.Event) event.Event
}

// StateReporter is implemented by services that can name their current
// state. Used by traces, the harness and the validate command.
type StateReporter interface {
	State() string
}

// Poster accepts events into a queue.
type Poster interface {
	Post(ev event.Event) error
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(ev event.Event) error

// Post calls f(ev).
func (f PosterFunc) Post(ev event.Event) error {
	return f(ev)
}

// Framework is what a service sees of the scheduler during Init.
type Framework interface {
	// Self returns the service's own handle.
	Self() Handle
	// Lookup resolves another service by name.
	Lookup(name string) (Handle, error)
	// List resolves a distribution list by name.
	List(name string) (*DistributionList, error)
	// Timer resolves a main-table timer by name.
	Timer(name string) (TimerRef, error)
	// ShortTimer resolves a short-table timer by name.
	ShortTimer(name string) (TimerRef, error)
	// NewDeferralQueue creates a deferral queue that recalls into this
	// service's own queue.
	NewDeferralQueue(capacity int) *DeferralQueue
	// Logger returns a logger tagged with the service name.
	Logger() *slog.Logger
}

// Handle addresses one hosted service. Posting through a Handle is the only
// way to reach another service's queue.
type Handle struct {
	id    ServiceID
	sched *Scheduler
}

// ID returns the service's slot, which is also its priority.
func (h Handle) ID() ServiceID {
	return h.id
}

// Name returns the registered service name.
func (h Handle) Name() string {
	if h.sched == nil {
		return ""
	}
	return h.sched.services[h.id].name
}

// Valid reports whether the handle refers to a registered service.
func (h Handle) Valid() bool {
	return h.sched != nil
}

// Post enqueues ev at the back of the service's queue.
// Returns a QUEUE_FULL RuntimeError if the queue is saturated.
func (h Handle) Post(ev event.Event) error {
	if h.sched == nil {
		return &RuntimeError{Code: ErrCodeNullConfig, Message: "post through zero handle"}
	}
	return h.sched.post(h.id, ev)
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Name(), h.id)
}

// Ignore is the default for an event with no transition in the current
// state: log it and leave the state unchanged. A timeout lands here when
// the receiving state does not expect that slot (a misfire).
func Ignore(logger *slog.Logger, state fmt.Stringer, ev event.Event) event.Event {
	code := ErrCodeUnmatchedTransition
	if ev.Type == event.Timeout || ev.Type == event.ShortTimeout {
		code = ErrCodeTimerMisfire
	}
	logger.Debug("event ignored",
		"state", state.String(),
		"event", ev.String(),
		"code", string(code),
	)
	return event.New(event.NoEvent)
}

// Failed logs err and returns an Error status event. Used by run functions
// when an outgoing post or timer operation fails.
func Failed(logger *slog.Logger, state fmt.Stringer, ev event.Event, err error) event.Event {
	logger.Error("transition failed",
		"state", state.String(),
		"event", ev.String(),
		"error", err,
	)
	return event.New(event.Error)
}
