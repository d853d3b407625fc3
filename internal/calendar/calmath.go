// Package calendar holds the month arithmetic, the month grid builder and
// the inclusive event overlap filter. Everything here is pure: no clock, no
// I/O, no shared state.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"monthcal/internal/model"
)

var (
	// ErrInvalidArgument marks programmer errors such as a month outside
	// 1..12 or an inverted range. Callers should not try to recover.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidDate marks user input that does not parse as a date.
	ErrInvalidDate = errors.New("invalid date")
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d out of range 1..12", ErrInvalidArgument, month)
	}
	return nil
}

// MonthName returns the English name of month (1 = January).
func MonthName(month int) (string, error) {
	if err := checkMonth(month); err != nil {
		return "", err
	}
	return monthNames[month-1], nil
}

// DaysInMonth returns the number of days in month of year.
//
// It probes day 1, 2, ... until time.Date normalizes the date into the
// following month; the last day before the rollover is the count. Leap years
// fall out of the Gregorian rules implemented by time.Date.
func DaysInMonth(month, year int) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}

	day := 0
	for {
		day++
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if int(t.Month()) != month {
			break
		}
	}
	return day - 1, nil
}

// DayOfWeek returns 0 (Sunday) .. 6 (Saturday) for the given date.
func DayOfWeek(month, day, year int) (int, error) {
	if err := ValidateDate(model.CalendarDate{Month: month, Day: day, Year: year}); err != nil {
		return 0, err
	}
	return int(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday()), nil
}

// PreviousMonth returns the month before (month, year), rolling January back
// to December of the previous year.
func PreviousMonth(month, year int) (int, int, error) {
	if err := checkMonth(month); err != nil {
		return 0, 0, err
	}
	if month == 1 {
		return 12, year - 1, nil
	}
	return month - 1, year, nil
}

// NextMonth returns the month after (month, year), rolling December over to
// January of the next year.
func NextMonth(month, year int) (int, int, error) {
	if err := checkMonth(month); err != nil {
		return 0, 0, err
	}
	if month == 12 {
		return 1, year + 1, nil
	}
	return month + 1, year, nil
}

// ValidateDate checks that d names a real Gregorian date.
func ValidateDate(d model.CalendarDate) error {
	n, err := DaysInMonth(d.Month, d.Year)
	if err != nil {
		return err
	}
	if d.Day < 1 || d.Day > n {
		return fmt.Errorf("%w: day %d out of range 1..%d for %d/%d", ErrInvalidArgument, d.Day, n, d.Month, d.Year)
	}
	return nil
}
