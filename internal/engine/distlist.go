package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/exhibit/internal/event"
)

// DistributionList is a named, ordered set of services that all receive a
// copy of each event posted to the list.
type DistributionList struct {
	name    string
	members []Poster
}

// NewDistributionList creates a list that posts to members in order.
func NewDistributionList(name string, members ...Poster) *DistributionList {
	return &DistributionList{name: name, members: members}
}

// Name returns the list name.
func (l *DistributionList) Name() string {
	return l.name
}

// Len returns the number of members.
func (l *DistributionList) Len() int {
	return len(l.members)
}

// Members returns the member names, in posting order, for members that
// are service handles.
func (l *DistributionList) Members() []string {
	out := make([]string, 0, len(l.members))
	for _, m := range l.members {
		out = append(out, ownerName(m))
	}
	return out
}

// Post sends a copy of ev to every member in order. A member whose queue
// is full does not stop delivery to the rest; all failures are joined.
func (l *DistributionList) Post(ev event.Event) error {
	var errs []error
	for _, m := range l.members {
		if err := m.Post(ev); err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", l.name, err))
		}
	}
	return errors.Join(errs...)
}
