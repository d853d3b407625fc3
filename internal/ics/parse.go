package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// ParseICS parses a single ICS payload into remote events.
//
//   - Times with a TZID or a trailing Z keep the zone the library resolved.
//     Floating and all-day values are read as wall-clock time in loc.
//   - All-day events end one second before their exclusive DTEND, so a
//     one-day event covers exactly [00:00:00, 23:59:59] of that day.
//   - RRULE is not expanded; a recurring VEVENT yields its first occurrence.
func ParseICS(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]model.Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	out := model.Event{IsRemote: true}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.ID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return out, fmt.Errorf("%s: missing DTSTART", out.ID)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("%s: DTSTART: %w", out.ID, err)
	}
	start = relocate(start, startProp, loc)
	allDay := isAllDay(startProp)

	var end time.Time
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		if end, err = ve.GetEndAt(); err != nil {
			return out, fmt.Errorf("%s: DTEND: %w", out.ID, err)
		}
		end = relocate(end, endProp, loc)
	}

	switch {
	case allDay && end.After(start):
		end = end.Add(-time.Second)
	case allDay:
		end = start.AddDate(0, 0, 1).Add(-time.Second)
	case end.IsZero() || end.Before(start):
		end = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		appLog.Debug("ics recurrence not expanded", "uid", out.ID, "rrule", p.Value)
	}

	out.Start = start
	out.Stop = end
	return out, nil
}

// isAllDay is true for VALUE=DATE or a value without a time part.
func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// relocate moves a floating time (no TZID, no Z) from time.Local, where the
// library parses it, to the same wall clock in loc.
func relocate(t time.Time, p *ical.IANAProperty, loc *time.Location) time.Time {
	if _, ok := p.ICalParameters["TZID"]; ok || strings.HasSuffix(p.Value, "Z") {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
