package view

import (
	"time"

	"monthcal/internal/model"
)

// Clock supplies the host's current date for today-highlighting.
type Clock interface {
	Today() model.CalendarDate
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() model.CalendarDate

func (f ClockFunc) Today() model.CalendarDate { return f() }

// SystemClock reads time.Now in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() model.CalendarDate {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return model.DateOf(time.Now().In(loc))
}
