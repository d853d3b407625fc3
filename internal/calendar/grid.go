package calendar

import (
	"time"

	"monthcal/internal/model"
)

// GridInput carries everything BuildMonthGrid needs besides the month.
type GridInput struct {
	// Selected is the focused day; the matching cell gets IsSelected.
	Selected model.CalendarDate
	// Today is the host date; only a current-month cell can be today.
	Today model.CalendarDate
	// Events is the source list; each cell receives its own filtered copy.
	Events []model.Event
	// Location is the wall-clock zone for day ranges. Nil means time.Local.
	Location *time.Location
}

// BuildMonthGrid lays out month/year as week rows of seven cells, Sunday
// first. The first row is padded with the tail of the previous month and the
// last row with the head of the next month.
func BuildMonthGrid(month, year int, in GridInput) ([][]model.DayCell, error) {
	days, err := DaysInMonth(month, year)
	if err != nil {
		return nil, err
	}
	leading, _ := DayOfWeek(month, 1, year)
	lastWeekday, _ := DayOfWeek(month, days, year)

	prevMonth, prevYear, _ := PreviousMonth(month, year)
	prevDays, _ := DaysInMonth(prevMonth, prevYear)
	nextMonth, nextYear, _ := NextMonth(month, year)

	numRows := (days + leading + 6) / 7
	trailing := 7 - lastWeekday - 1

	cells := make([]model.DayCell, 0, numRows*7)

	for j := 0; j < leading; j++ {
		d := model.CalendarDate{Month: prevMonth, Day: prevDays - leading + j + 1, Year: prevYear}
		cells = append(cells, newCell(d, model.OriginPrevious, in))
	}
	for day := 1; day <= days; day++ {
		d := model.CalendarDate{Month: month, Day: day, Year: year}
		cells = append(cells, newCell(d, model.OriginCurrent, in))
	}
	for j := 0; j < trailing; j++ {
		d := model.CalendarDate{Month: nextMonth, Day: j + 1, Year: nextYear}
		cells = append(cells, newCell(d, model.OriginNext, in))
	}

	rows := make([][]model.DayCell, 0, numRows)
	for i := 0; i < len(cells); i += 7 {
		rows = append(rows, cells[i:i+7:i+7])
	}
	return rows, nil
}

func newCell(d model.CalendarDate, origin model.Origin, in GridInput) model.DayCell {
	start, stop := DayRange(d, in.Location)
	// start <= stop always holds for a day range.
	events, _ := FilterEvents(in.Events, start, stop)

	return model.DayCell{
		Date:       d,
		Origin:     origin,
		IsSelected: d == in.Selected,
		IsToday:    origin == model.OriginCurrent && d == in.Today,
		Events:     events,
	}
}
