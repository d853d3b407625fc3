package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/metrics"
	"monthcal/internal/model"
	"monthcal/internal/source"
	"monthcal/internal/store"
)

// DefaultFetchLimit is the page size asked for when loading a window.
const DefaultFetchLimit = 500

// Deps are the collaborators a Session works with.
type Deps struct {
	// Fetcher loads remote events. Nil means a local-only calendar.
	Fetcher source.Fetcher
	// Clock defaults to SystemClock in Location.
	Clock Clock
	// Random feeds id generation. Nil means crypto/rand.
	Random io.Reader
	// Location is the wall-clock zone. Nil means time.Local.
	Location   *time.Location
	IDLength   int
	FetchLimit int
	Metrics    *metrics.Collector
}

// Direction is a month navigation step.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// EventEdit is what the edit form submits for an existing local event.
type EventEdit struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Grid is a rendered month with the state it was built from.
type Grid struct {
	Month      int                `json:"month"`
	Year       int                `json:"year"`
	MonthName  string             `json:"monthName"`
	Selected   model.CalendarDate `json:"selected"`
	Today      model.CalendarDate `json:"today"`
	Status     store.Status       `json:"status"`
	Error      string             `json:"error,omitempty"`
	EditorOpen bool               `json:"editorOpen"`
	Mode       string             `json:"mode"`
	Rows       [][]model.DayCell  `json:"rows"`
}

// Session owns the calendar State for one user. Transitions are serialized by
// a mutex; fetches run outside it and a generation counter drops responses
// that were overtaken by a newer fetch.
type Session struct {
	deps  Deps
	newID store.IDGenerator

	mu    sync.Mutex
	state State
	gen   uint64
}

func NewSession(deps Deps) *Session {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{Location: deps.Location}
	}
	if deps.IDLength <= 0 {
		deps.IDLength = store.DefaultIDLength
	}
	if deps.FetchLimit <= 0 {
		deps.FetchLimit = DefaultFetchLimit
	}
	return &Session{
		deps:  deps,
		newID: store.NewIDGenerator(deps.Random, deps.IDLength),
		state: NewState(deps.Clock.Today()),
	}
}

// State returns the current state value.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply runs a transition against the current state and stores the result
// unless it fails.
func (s *Session) Apply(fn func(State) (State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Refresh fetches the visible window of the selected month.
//
// A 401 returns an error matching source.ErrUnauthorized and leaves the store
// loading until the caller signs in again. Any other failure puts the store
// in StatusError and returns nil. A response overtaken by a newer Refresh is
// discarded.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	sel := s.state.Selected
	s.state.Store = s.state.Store.BeginLoad()
	s.mu.Unlock()

	start, stop, err := calendar.VisibleWindow(sel.Month, sel.Year, s.deps.Location)
	if err != nil {
		return err
	}

	var events []model.Event
	began := time.Now()
	if s.deps.Fetcher != nil {
		events, err = s.deps.Fetcher.GetEvents(ctx,
			calendar.FormatDateTime(start), calendar.FormatDateTime(stop), 0, s.deps.FetchLimit)
	}
	elapsed := time.Since(began)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.deps.Metrics.ObserveFetch(metrics.OutcomeStale, elapsed)
		appLog.Debug("dropping stale fetch", "generation", gen, "current", s.gen)
		return nil
	}

	switch {
	case err == nil:
		s.state.Store = s.state.Store.MergeRemote(events)
		s.deps.Metrics.ObserveFetch(metrics.OutcomeSuccess, elapsed)
		appLog.Debug("events loaded", "count", len(events), "month", sel.Month, "year", sel.Year)
	case errors.Is(err, source.ErrUnauthorized):
		s.deps.Metrics.ObserveFetch(metrics.OutcomeUnauthorized, elapsed)
		appLog.Info("data service rejected token", "month", sel.Month, "year", sel.Year)
		return err
	default:
		s.state.Store = s.state.Store.Fail(err)
		s.deps.Metrics.ObserveFetch(metrics.OutcomeFailure, elapsed)
		appLog.Error("fetch events failed", err, "month", sel.Month, "year", sel.Year)
	}
	s.deps.Metrics.SetEvents(s.state.Store.Counts())
	return nil
}

// Grid builds the month grid of the current selection.
func (s *Session) Grid() (Grid, error) {
	st := s.State()
	if err := st.Validate(); err != nil {
		return Grid{}, err
	}
	today := s.deps.Clock.Today()
	sel := st.Selected

	name, err := calendar.MonthName(sel.Month)
	if err != nil {
		return Grid{}, err
	}
	rows, err := calendar.BuildMonthGrid(sel.Month, sel.Year, calendar.GridInput{
		Selected: sel,
		Today:    today,
		Events:   st.Store.Events(),
		Location: s.deps.Location,
	})
	if err != nil {
		return Grid{}, err
	}

	g := Grid{
		Month:      sel.Month,
		Year:       sel.Year,
		MonthName:  name,
		Selected:   sel,
		Today:      today,
		Status:     st.Store.Status(),
		EditorOpen: st.EditorOpen,
		Mode:       ModeName(st.Mode),
		Rows:       rows,
	}
	if err := st.Store.Err(); err != nil {
		g.Error = err.Error()
	}
	return g, nil
}

// Navigate moves one month in dir and reloads the window.
func (s *Session) Navigate(ctx context.Context, dir Direction) error {
	err := s.Apply(func(st State) (State, error) {
		if dir == Backward {
			return st.PreviousMonth()
		}
		return st.NextMonth()
	})
	if err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// SelectDay focuses d and opens its event list. Selecting a spill-over day
// of another month switches to that month and reloads.
func (s *Session) SelectDay(ctx context.Context, d model.CalendarDate) error {
	var moved bool
	err := s.Apply(func(st State) (State, error) {
		moved = st.Selected.Month != d.Month || st.Selected.Year != d.Year
		return st.Select(d)
	})
	if err != nil || !moved {
		return err
	}
	return s.Refresh(ctx)
}

// AddEvent creates a local event and closes the editor.
func (s *Session) AddEvent(ev store.NewEvent) (model.Event, error) {
	var created model.Event
	err := s.Apply(func(st State) (State, error) {
		next, c, err := st.Store.Add(ev, s.newID, s.deps.Location)
		if err != nil {
			return st, err
		}
		created = c
		st.Store = next
		return st.CloseEditor(), nil
	})
	if err != nil {
		return model.Event{}, err
	}
	s.publishCounts()
	appLog.Debug("event added", "id", created.ID)
	return created, nil
}

// SaveEvent applies an edit to a local event and closes the editor.
// Remote events are read-only.
func (s *Session) SaveEvent(edit EventEdit) (model.Event, error) {
	var saved model.Event
	err := s.Apply(func(st State) (State, error) {
		cur, err := st.editable(edit.ID)
		if err != nil {
			return st, err
		}
		if strings.TrimSpace(edit.Title) == "" {
			return st, fmt.Errorf("%w: title is required", store.ErrInvalidEvent)
		}
		// A blank date keeps the event where it is.
		if strings.TrimSpace(edit.Date) != "" {
			at, err := calendar.ParseDateTime(edit.Date, s.deps.Location)
			if err != nil {
				return st, err
			}
			cur.Start = at
			cur.Stop = at
		}

		cur.Title = edit.Title
		cur.Description = edit.Description
		saved = cur
		st.Store = st.Store.Update(cur)
		return st.CloseEditor(), nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return saved, nil
}

// RemoveEvent deletes a local event and returns the editor to the list.
func (s *Session) RemoveEvent(id string) error {
	err := s.Apply(func(st State) (State, error) {
		ev, err := st.editable(id)
		if err != nil {
			return st, err
		}
		st.Store = st.Store.Delete(ev.ID)
		return st.BackToList(), nil
	})
	if err != nil {
		return err
	}
	s.publishCounts()
	appLog.Debug("event deleted", "id", id)
	return nil
}

// DayEvents returns the events overlapping the selected day.
func (s *Session) DayEvents() ([]model.Event, error) {
	st := s.State()
	start, stop := calendar.DayRange(st.Selected, s.deps.Location)
	return calendar.FilterEvents(st.Store.Events(), start, stop)
}

// DayDetails resolves the selected day's events. Cancelling ctx disposes the
// loader so a late answer is never applied.
func (s *Session) DayDetails(ctx context.Context) ([]EventDetails, error) {
	events, err := s.DayEvents()
	if err != nil {
		return nil, err
	}

	var details []EventDetails
	loader := NewDetailsLoader(s.deps.Fetcher, func(d []EventDetails) { details = d })
	stop := context.AfterFunc(ctx, loader.Dispose)
	defer stop()

	if err := loader.Load(ctx, events); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Session) publishCounts() {
	if s.deps.Metrics == nil {
		return
	}
	st := s.State()
	s.deps.Metrics.SetEvents(st.Store.Counts())
}
