package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"monthcal/internal/model"
)

// Encode serializes events as a PUBLISH VCALENDAR. Instants are written in
// UTC; stamp becomes every VEVENT's DTSTAMP.
func Encode(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendarFor("monthcal")
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.Stop)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}
	return cal.Serialize()
}
