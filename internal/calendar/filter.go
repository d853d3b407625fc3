package calendar

import (
	"fmt"
	"time"

	"monthcal/internal/model"
)

// FilterEvents returns the events overlapping [start, stop], both ends
// inclusive, in source order. The result is a fresh slice of value copies, so
// callers cannot reach back into the slice they passed in.
func FilterEvents(events []model.Event, start, stop time.Time) ([]model.Event, error) {
	if start.After(stop) {
		return nil, fmt.Errorf("%w: range start %s is after stop %s",
			ErrInvalidArgument, start.Format(time.RFC3339), stop.Format(time.RFC3339))
	}

	out := make([]model.Event, 0)
	for _, ev := range events {
		if overlaps(ev, start, stop) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// overlaps spells out the four ways an event can touch the range. Together
// they equal ev.Start <= stop && ev.Stop >= start; the cases are kept
// separate so that boundary behaviour is explicit.
func overlaps(ev model.Event, start, stop time.Time) bool {
	startsInRange := !ev.Start.Before(start) && !ev.Start.After(stop)
	stopsInRange := !ev.Stop.Before(start) && !ev.Stop.After(stop)

	contained := !ev.Start.Before(start) && !ev.Stop.After(stop)
	startsBeforeStopsWithin := ev.Start.Before(start) && stopsInRange
	spans := ev.Start.Before(start) && ev.Stop.After(stop)
	startsWithinStopsAfter := startsInRange && ev.Stop.After(stop)

	return contained || startsBeforeStopsWithin || spans || startsWithinStopsAfter
}
