package store

import (
	"fmt"
	"time"

	"github.com/roach88/exhibit/internal/event"
)

// timeLayout is the storage format for wall timestamps.
const timeLayout = time.RFC3339Nano

// marshalEvent splits an event into its tag name and flattened payload.
func marshalEvent(ev event.Event) (string, int) {
	return ev.Type.String(), ev.Int()
}

// unmarshalEvent rebuilds an event from its stored name and payload.
func unmarshalEvent(name string, param int) (event.Event, error) {
	t, err := event.Parse(name)
	if err != nil {
		return event.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	ev, err := event.Make(t, param)
	if err != nil {
		return event.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time %q: %w", s, err)
	}
	return t, nil
}
