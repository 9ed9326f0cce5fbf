package exhibit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
)

// status returns NoEvent, or logs the joined errors and returns Error.
// State changes already made stand; a failed post is not retried.
func status(logger *slog.Logger, state fmt.Stringer, ev event.Event, errs ...error) event.Event {
	if err := errors.Join(errs...); err != nil {
		return engine.Failed(logger, state, ev, err)
	}
	return event.New(event.NoEvent)
}

// stateName adapts a state already rendered as a string to fmt.Stringer.
type stateName string

func (s stateName) String() string { return string(s) }
