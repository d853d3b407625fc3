// Package store keeps the session's event list.
//
// A Store is an immutable value. Every mutation returns a new Store backed by
// a new slice, so a render holding an older Store never sees a half-applied
// change.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

// ErrInvalidEvent is returned for user input that fails field validation.
var ErrInvalidEvent = errors.New("invalid event")

// ErrInvalidStatus means a Store carries a status outside the known set.
var ErrInvalidStatus = errors.New("invalid store status")

// Status tracks the remote fetch feeding the store.
type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// Validate fails for anything but the three known statuses.
func (s Status) Validate() error {
	switch s {
	case StatusLoading, StatusLoaded, StatusError:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
}

// NewEvent is what the editor submits when creating an event.
type NewEvent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Date in calendar.DateTimeLayout; start and stop are both set to it.
	Date string `json:"date"`
}

// Store holds the events of the visible window and the fetch status.
type Store struct {
	events []model.Event
	status Status
	err    error
}

// New returns an empty store waiting for its first fetch.
func New() Store {
	return Store{status: StatusLoading}
}

// Events returns a copy of the stored events.
func (s Store) Events() []model.Event {
	return slices.Clone(s.events)
}

func (s Store) Len() int { return len(s.events) }

func (s Store) Status() Status { return s.status }

// Err is the fetch error behind StatusError, if any.
func (s Store) Err() error { return s.err }

// Find looks an event up by id, ignoring case.
func (s Store) Find(id string) (model.Event, bool) {
	i := indexOf(s.events, id)
	if i < 0 {
		return model.Event{}, false
	}
	return s.events[i], true
}

// Counts returns the number of remote and local events.
func (s Store) Counts() (remote, local int) {
	for _, ev := range s.events {
		if ev.IsRemote {
			remote++
		} else {
			local++
		}
	}
	return remote, local
}

// BeginLoad marks a new fetch in flight. Events are kept until it completes.
func (s Store) BeginLoad() Store {
	s.status = StatusLoading
	s.err = nil
	return s
}

// ReplaceAll swaps in a freshly fetched event list. Every incoming event is
// marked remote.
func (s Store) ReplaceAll(events []model.Event) Store {
	next := make([]model.Event, len(events))
	for i, ev := range events {
		ev.IsRemote = true
		next[i] = ev
	}
	return Store{events: next, status: StatusLoaded}
}

// MergeRemote replaces the remote events with a fresh fetch result while
// keeping the events created in this session. A local event whose id now
// also comes from the service is dropped in favour of the remote copy.
func (s Store) MergeRemote(events []model.Event) Store {
	next := s.ReplaceAll(events)
	for _, ev := range s.events {
		if !ev.IsRemote && indexOf(next.events, ev.ID) < 0 {
			next.events = append(next.events, ev)
		}
	}
	return next
}

// Fail records a failed fetch. Remote events are dropped; local ones stay.
func (s Store) Fail(err error) Store {
	next := make([]model.Event, 0)
	for _, ev := range s.events {
		if !ev.IsRemote {
			next = append(next, ev)
		}
	}
	return Store{events: next, status: StatusError, err: err}
}

// Add validates ev, assigns a fresh id and appends it as a local event.
func (s Store) Add(ev NewEvent, gen IDGenerator, loc *time.Location) (Store, model.Event, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return s, model.Event{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	at, err := calendar.ParseDateTime(ev.Date, loc)
	if err != nil {
		return s, model.Event{}, err
	}
	id, err := gen(s.events)
	if err != nil {
		return s, model.Event{}, err
	}

	created := model.Event{
		ID:          id,
		Title:       ev.Title,
		Description: ev.Description,
		IsRemote:    false,
		Start:       at,
		Stop:        at,
	}

	next := make([]model.Event, 0, len(s.events)+1)
	next = append(next, s.events...)
	next = append(next, created)
	s.events = next
	return s, created, nil
}

// Update replaces title, description, remote flag and instants of the event
// whose id matches ev.ID (ignoring case). An unknown id is silently ignored.
func (s Store) Update(ev model.Event) Store {
	i := indexOf(s.events, ev.ID)
	if i < 0 {
		return s
	}

	next := slices.Clone(s.events)
	cur := &next[i]
	cur.Title = ev.Title
	cur.Description = ev.Description
	cur.IsRemote = ev.IsRemote
	cur.Start = ev.Start
	cur.Stop = ev.Stop
	s.events = next
	return s
}

// Delete removes the first event whose id matches, ignoring case. An unknown
// id is a no-op.
func (s Store) Delete(id string) Store {
	i := indexOf(s.events, id)
	if i < 0 {
		return s
	}
	next := make([]model.Event, 0, len(s.events)-1)
	next = append(next, s.events[:i]...)
	next = append(next, s.events[i+1:]...)
	s.events = next
	return s
}
