package model

import (
	"fmt"
	"time"
)

// CalendarDate is a local wall-clock date without timezone.
// Month is 1..12. Validity of Day for the month is checked by
// calendar.ValidateDate.
type CalendarDate struct {
	Month int `json:"month"`
	Day   int `json:"day"`
	Year  int `json:"year"`
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Month: int(m), Day: d, Year: y}
}

// String formats the date as M/D/YYYY.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%d/%d/%d", d.Month, d.Day, d.Year)
}

// Event is a calendar entry with a start and stop instant.
//
// IsRemote marks events whose source of truth is the data service; they are
// read-only in the editor. Local events are created in the session and are
// lost on restart. Start <= Stop is assumed but not enforced; single-instant
// events have Start == Stop.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsRemote    bool      `json:"isRemote"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

// Origin says which month a DayCell belongs to relative to the displayed one.
type Origin int

const (
	OriginPrevious Origin = iota
	OriginCurrent
	OriginNext
)

func (o Origin) String() string {
	switch o {
	case OriginPrevious:
		return "previous"
	case OriginCurrent:
		return "current"
	case OriginNext:
		return "next"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// MarshalText encodes the origin by name.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (o *Origin) UnmarshalText(b []byte) error {
	switch string(b) {
	case "previous":
		*o = OriginPrevious
	case "current":
		*o = OriginCurrent
	case "next":
		*o = OriginNext
	default:
		return fmt.Errorf("unknown origin %q", b)
	}
	return nil
}

// DayCell is one tile of a month grid. Cells are built fresh on every grid
// build and are not shared with the event store.
type DayCell struct {
	Date       CalendarDate `json:"date"`
	Origin     Origin       `json:"origin"`
	IsSelected bool         `json:"isSelected"`
	IsToday    bool         `json:"isToday"`
	Events     []Event      `json:"events"`
}
