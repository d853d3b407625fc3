package view

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"monthcal/internal/model"
	"monthcal/internal/source"
)

// ErrDisposed is returned by Load when the loader was disposed mid-flight.
// The apply callback is not called in that case.
var ErrDisposed = errors.New("details loader disposed")

// EventDetails is what the day panel shows for one event.
type EventDetails struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
	ReadOnly    bool      `json:"readOnly"`
}

func detailsOf(ev model.Event) EventDetails {
	return EventDetails{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Start:       ev.Start,
		Stop:        ev.Stop,
		ReadOnly:    ev.IsRemote,
	}
}

// DetailsLoader resolves the full record of each event of a day. Remote
// events are fetched one at a time through GetEventByID; local events are
// used as they are. Once Dispose is called, results are never applied.
type DetailsLoader struct {
	fetcher  source.Fetcher
	apply    func([]EventDetails)
	disposed atomic.Bool
}

// NewDetailsLoader returns a loader handing its result to apply. A nil
// fetcher leaves remote events unresolved.
func NewDetailsLoader(f source.Fetcher, apply func([]EventDetails)) *DetailsLoader {
	return &DetailsLoader{fetcher: f, apply: apply}
}

// Dispose stops any in-flight Load from applying its result.
func (l *DetailsLoader) Dispose() {
	l.disposed.Store(true)
}

func (l *DetailsLoader) Disposed() bool {
	return l.disposed.Load()
}

// Load resolves events in order and applies the result.
func (l *DetailsLoader) Load(ctx context.Context, events []model.Event) error {
	out := make([]EventDetails, 0, len(events))
	for _, ev := range events {
		if l.Disposed() {
			return ErrDisposed
		}
		if !ev.IsRemote || l.fetcher == nil {
			out = append(out, detailsOf(ev))
			continue
		}

		full, err := l.fetcher.GetEventByID(ctx, ev.ID)
		if err != nil {
			if l.Disposed() {
				return ErrDisposed
			}
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
		full.IsRemote = true
		if full.ID == "" {
			full.ID = ev.ID
		}
		out = append(out, detailsOf(full))
	}

	if l.Disposed() {
		return ErrDisposed
	}
	l.apply(out)
	return nil
}
