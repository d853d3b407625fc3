package view

import (
	"errors"
	"fmt"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

var (
	// ErrEventNotFound is returned when the editor targets an unknown id.
	ErrEventNotFound = errors.New("event not found")

	// ErrReadOnly is returned when the editor targets a remote event.
	ErrReadOnly = errors.New("event is read-only")
)

// State is the whole calendar view: selection, event store and editor.
// Transitions are methods returning a new State; the receiver is left as is.
type State struct {
	Selected   model.CalendarDate
	Store      store.Store
	EditorOpen bool
	Mode       DialogMode
}

// NewState starts on today with an empty, loading store.
func NewState(today model.CalendarDate) State {
	return State{
		Selected: today,
		Store:    store.New(),
		Mode:     ListMode{},
	}
}

// Validate checks the invariants a rendered state relies on.
func (s State) Validate() error {
	if err := s.Store.Status().Validate(); err != nil {
		return err
	}
	if s.Mode == nil {
		return fmt.Errorf("%w: nil dialog mode", calendar.ErrInvalidArgument)
	}
	return calendar.ValidateDate(s.Selected)
}

// NextMonth moves the selection one month forward, clamping the day to the
// length of the new month.
func (s State) NextMonth() (State, error) {
	m, y, err := calendar.NextMonth(s.Selected.Month, s.Selected.Year)
	if err != nil {
		return s, err
	}
	return s.moveTo(m, y)
}

// PreviousMonth moves the selection one month back.
func (s State) PreviousMonth() (State, error) {
	m, y, err := calendar.PreviousMonth(s.Selected.Month, s.Selected.Year)
	if err != nil {
		return s, err
	}
	return s.moveTo(m, y)
}

func (s State) moveTo(month, year int) (State, error) {
	days, err := calendar.DaysInMonth(month, year)
	if err != nil {
		return s, err
	}
	s.Selected = model.CalendarDate{Month: month, Day: min(s.Selected.Day, days), Year: year}
	return s, nil
}

// Select focuses d and opens the editor on its event list.
func (s State) Select(d model.CalendarDate) (State, error) {
	if err := calendar.ValidateDate(d); err != nil {
		return s, err
	}
	s.Selected = d
	s.EditorOpen = true
	s.Mode = ListMode{}
	return s, nil
}

// CloseEditor hides the editor and resets it to the list.
func (s State) CloseEditor() State {
	s.EditorOpen = false
	s.Mode = ListMode{}
	return s
}

// BackToList leaves the form or confirmation and shows the list again.
func (s State) BackToList() State {
	s.Mode = ListMode{}
	return s
}

// BeginNew switches the editor to the creation form.
func (s State) BeginNew() State {
	s.EditorOpen = true
	s.Mode = NewMode{}
	return s
}

// BeginEdit switches the editor to the edit form of a local event.
func (s State) BeginEdit(id string) (State, error) {
	ev, err := s.editable(id)
	if err != nil {
		return s, err
	}
	s.EditorOpen = true
	s.Mode = EditMode{Event: ev}
	return s, nil
}

// BeginDelete asks for confirmation before deleting a local event.
func (s State) BeginDelete(id string) (State, error) {
	ev, err := s.editable(id)
	if err != nil {
		return s, err
	}
	s.EditorOpen = true
	s.Mode = DeleteMode{ID: ev.ID}
	return s, nil
}

func (s State) editable(id string) (model.Event, error) {
	ev, ok := s.Store.Find(id)
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if ev.IsRemote {
		return model.Event{}, fmt.Errorf("%w: %s", ErrReadOnly, id)
	}
	return ev, nil
}
