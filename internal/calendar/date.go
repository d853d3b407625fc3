package calendar

import (
	"fmt"
	"strings"
	"time"

	"monthcal/internal/model"
)

// DateTimeLayout is the wire format exchanged with the data service:
// "M/D/YYYY HH:MM:SS". Month and day are not zero-padded.
const DateTimeLayout = "1/2/2006 15:04:05"

// Accepted input layouts, most specific first. RFC 3339 is accepted for API
// clients that send machine timestamps.
var parseLayouts = []string{
	DateTimeLayout,
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseDateTime parses s in loc. A nil loc means time.Local.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	v := strings.Join(strings.Fields(s), " ")
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatDateTime formats t using DateTimeLayout.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// DayRange returns [d 00:00:00, d 23:59:59] in loc.
func DayRange(d model.CalendarDate, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
	stop := time.Date(d.Year, time.Month(d.Month), d.Day, 23, 59, 59, 0, loc)
	return start, stop
}

// VisibleWindow is the fetch window for a displayed month: the first day of
// the previous month through the last day of the next month, which covers
// every spill-over cell the grid can show.
func VisibleWindow(month, year int, loc *time.Location) (time.Time, time.Time, error) {
	pm, py, err := PreviousMonth(month, year)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	nm, ny, _ := NextMonth(month, year)
	last, _ := DaysInMonth(nm, ny)

	start, _ := DayRange(model.CalendarDate{Month: pm, Day: 1, Year: py}, loc)
	_, stop := DayRange(model.CalendarDate{Month: nm, Day: last, Year: ny}, loc)
	return start, stop, nil
}
