package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

func fixedIDs(ids ...string) IDGenerator {
	return func(existing []model.Event) (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := New()

	s, created, err := s.Add(NewEvent{Title: "Dentist", Description: "bring card", Date: "3/14/2021 09:30:00"}, fixedIDs("42"), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "42", created.ID)
	assert.False(t, created.IsRemote)
	assert.Equal(t, time.Date(2021, 3, 14, 9, 30, 0, 0, time.UTC), created.Start)
	assert.Equal(t, created.Start, created.Stop)

	edited := created
	edited.Title = "X"
	s = s.Update(edited)

	got, ok := s.Find("42")
	require.True(t, ok)
	assert.Equal(t, "X", got.Title)
	assert.Equal(t, "bring card", got.Description)

	s = s.Delete("42")
	_, ok = s.Find("42")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	assert.NotPanics(t, func() { s = s.Delete("missing") })
	assert.Equal(t, 0, s.Len())
}

func TestStoreUpdateIgnoresCaseAndMissing(t *testing.T) {
	s := New().ReplaceAll([]model.Event{{ID: "AbC", Title: "one"}, {ID: "def", Title: "two"}})

	s = s.Update(model.Event{ID: "abc", Title: "renamed", IsRemote: true})
	got, ok := s.Find("ABC")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)

	before := s.Events()
	s = s.Update(model.Event{ID: "nope", Title: "ghost"})
	assert.Equal(t, before, s.Events())
}

func TestStoreDeleteRemovesFirstMatchOnly(t *testing.T) {
	s := New().ReplaceAll([]model.Event{{ID: "a", Title: "1"}, {ID: "A", Title: "2"}, {ID: "b", Title: "3"}})
	s = s.Delete("a")

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "2", events[0].Title)
	assert.Equal(t, "3", events[1].Title)
}

func TestStoreIsCopyOnWrite(t *testing.T) {
	base := New().ReplaceAll([]model.Event{{ID: "1", Title: "orig"}})

	updated := base.Update(model.Event{ID: "1", Title: "new"})
	deleted := base.Delete("1")
	added, _, err := base.Add(NewEvent{Title: "t", Date: "1/1/2020"}, fixedIDs("2"), time.UTC)
	require.NoError(t, err)

	orig, _ := base.Find("1")
	assert.Equal(t, "orig", orig.Title)
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 0, deleted.Len())
	assert.Equal(t, 2, added.Len())
	got, _ := updated.Find("1")
	assert.Equal(t, "new", got.Title)

	// Mutating a returned slice must not leak into the store.
	evs := base.Events()
	evs[0].Title = "leak"
	orig, _ = base.Find("1")
	assert.Equal(t, "orig", orig.Title)
}

func TestStoreAddValidation(t *testing.T) {
	s := New()

	_, _, err := s.Add(NewEvent{Title: "   ", Date: "1/1/2020"}, fixedIDs("1"), time.UTC)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, _, err = s.Add(NewEvent{Title: "ok", Date: "not a date"}, fixedIDs("1"), time.UTC)
	assert.ErrorIs(t, err, calendar.ErrInvalidDate)

	failing := func([]model.Event) (string, error) { return "", ErrTooManyCollisions }
	_, _, err = s.Add(NewEvent{Title: "ok", Date: "1/1/2020"}, failing, time.UTC)
	assert.ErrorIs(t, err, ErrTooManyCollisions)
}

func TestStoreStatusTransitions(t *testing.T) {
	s := New()
	assert.Equal(t, StatusLoading, s.Status())

	s = s.ReplaceAll([]model.Event{{ID: "1"}})
	assert.Equal(t, StatusLoaded, s.Status())
	assert.True(t, s.Events()[0].IsRemote)

	s = s.BeginLoad()
	assert.Equal(t, StatusLoading, s.Status())
	assert.Equal(t, 1, s.Len())

	boom := errors.New("boom")
	s = s.Fail(boom)
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, boom, s.Err())
	assert.Equal(t, 0, s.Len())

	s = s.BeginLoad()
	assert.NoError(t, s.Err())

	for _, st := range []Status{StatusLoading, StatusLoaded, StatusError} {
		assert.NoError(t, st.Validate())
	}
	assert.ErrorIs(t, Status("pending").Validate(), ErrInvalidStatus)
	assert.ErrorIs(t, Store{}.Status().Validate(), ErrInvalidStatus)
}

func TestStoreCounts(t *testing.T) {
	s := New().ReplaceAll([]model.Event{{ID: "r1"}, {ID: "r2"}})
	s, _, err := s.Add(NewEvent{Title: "mine", Date: "1/1/2020"}, fixedIDs("l1"), time.UTC)
	require.NoError(t, err)

	remote, local := s.Counts()
	assert.Equal(t, 2, remote)
	assert.Equal(t, 1, local)
}

func TestStoreMergeRemoteKeepsLocal(t *testing.T) {
	s := New().ReplaceAll([]model.Event{{ID: "old", Title: "stale remote"}})
	s, local, err := s.Add(NewEvent{Title: "mine", Date: "1/1/2020"}, fixedIDs("7"), time.UTC)
	require.NoError(t, err)

	s = s.MergeRemote([]model.Event{{ID: "new", Title: "fresh"}})
	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "new", events[0].ID)
	assert.True(t, events[0].IsRemote)
	assert.Equal(t, local, events[1])
	assert.Equal(t, StatusLoaded, s.Status())

	s = s.Fail(errors.New("down"))
	assert.Equal(t, []model.Event{local}, s.Events())
}
