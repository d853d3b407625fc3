package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/model"
)

func TestParseDateTime(t *testing.T) {
	loc := time.FixedZone("test", -5*3600)

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "1/10/2020 10:00:00", want: time.Date(2020, 1, 10, 10, 0, 0, 0, loc)},
		{in: "12/31/2019 23:59:59", want: time.Date(2019, 12, 31, 23, 59, 59, 0, loc)},
		{in: "02/03/2021 9:05:00", want: time.Date(2021, 2, 3, 9, 5, 0, 0, loc)},
		{in: "3/4/2022", want: time.Date(2022, 3, 4, 0, 0, 0, 0, loc)},
		{in: "  3/4/2022   08:30 ", want: time.Date(2022, 3, 4, 8, 30, 0, 0, loc)},
		{in: "2022-03-04T13:00:00Z", want: time.Date(2022, 3, 4, 13, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDateTime(tt.in, loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseDateTimeInvalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2/30/2023 00:00:00", "13/1/2020"} {
		_, err := ParseDateTime(in, time.UTC)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2020, 1, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "1/5/2020 07:08:09", FormatDateTime(ts))

	back, err := ParseDateTime(FormatDateTime(ts), time.UTC)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))
}

func TestDayRange(t *testing.T) {
	start, stop := DayRange(model.CalendarDate{Month: 2, Day: 29, Year: 2024}, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), stop)
}

func TestVisibleWindow(t *testing.T) {
	start, stop, err := VisibleWindow(1, 2020, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2020, 2, 29, 23, 59, 59, 0, time.UTC), stop)

	start, stop, err = VisibleWindow(12, 2019, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 11, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2020, 1, 31, 23, 59, 59, 0, time.UTC), stop)

	_, _, err = VisibleWindow(0, 2020, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
