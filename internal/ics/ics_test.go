package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/model"
	"monthcal/internal/source"
)

var est = time.FixedZone("EST", -5*60*60)

func icsBody(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

var sampleFeed = icsBody(
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//test//EN",
	"BEGIN:VEVENT",
	"UID:meet-1",
	"DTSTAMP:20191201T000000Z",
	"DTSTART:20191215T140000Z",
	"DTEND:20191215T150000Z",
	"SUMMARY:Standup",
	"DESCRIPTION:Daily sync",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:holiday",
	"DTSTAMP:20191201T000000Z",
	"DTSTART;VALUE=DATE:20191225",
	"DTEND;VALUE=DATE:20191226",
	"SUMMARY:Christmas",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:floating",
	"DTSTAMP:20191201T000000Z",
	"DTSTART:20200102T083000",
	"RRULE:FREQ=DAILY",
	"SUMMARY:Floating",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTAMP:20191201T000000Z",
	"DTSTART:20200103T083000",
	"SUMMARY:No UID",
	"END:VEVENT",
	"END:VCALENDAR",
)

func TestParseICS(t *testing.T) {
	events, err := ParseICS(sampleFeed, est)
	require.NoError(t, err)
	require.Len(t, events, 3)

	byID := map[string]model.Event{}
	for _, ev := range events {
		assert.True(t, ev.IsRemote)
		byID[ev.ID] = ev
	}

	meet := byID["meet-1"]
	assert.Equal(t, "Standup", meet.Title)
	assert.Equal(t, "Daily sync", meet.Description)
	assert.True(t, meet.Start.Equal(time.Date(2019, 12, 15, 9, 0, 0, 0, est)))
	assert.True(t, meet.Stop.Equal(time.Date(2019, 12, 15, 10, 0, 0, 0, est)))

	holiday := byID["holiday"]
	assert.True(t, holiday.Start.Equal(time.Date(2019, 12, 25, 0, 0, 0, 0, est)), "start %s", holiday.Start)
	assert.True(t, holiday.Stop.Equal(time.Date(2019, 12, 25, 23, 59, 59, 0, est)), "stop %s", holiday.Stop)

	floating := byID["floating"]
	assert.True(t, floating.Start.Equal(time.Date(2020, 1, 2, 8, 30, 0, 0, est)), "start %s", floating.Start)
	assert.Equal(t, floating.Start, floating.Stop)

	_, err = ParseICS(nil, est)
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	events := []model.Event{
		{ID: "1", Title: "Dentist", Description: "bring card", Start: time.Date(2021, 3, 14, 9, 30, 0, 0, time.UTC), Stop: time.Date(2021, 3, 14, 10, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "Call", Start: time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC), Stop: time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC)},
	}

	out := Encode(events, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "DTSTART:20210314T093000Z")

	parsed, err := ParseICS([]byte(out), time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	for i, ev := range parsed {
		assert.Equal(t, events[i].ID, ev.ID)
		assert.Equal(t, events[i].Title, ev.Title)
		assert.Equal(t, events[i].Description, ev.Description)
		assert.True(t, events[i].Start.Equal(ev.Start))
		assert.True(t, events[i].Stop.Equal(ev.Stop))
	}
}

func TestFeedGetEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(sampleFeed)
	}))
	defer srv.Close()

	f := NewFeed(srv.URL+"/private/feed.ics", est)
	ctx := context.Background()

	events, err := f.GetEvents(ctx, "12/1/2019 00:00:00", "12/31/2019 23:59:59", 0, 500)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "meet-1", events[0].ID)
	assert.Equal(t, "holiday", events[1].ID)

	page, err := f.GetEvents(ctx, "12/1/2019 00:00:00", "1/31/2020 23:59:59", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "holiday", page[0].ID)

	empty, err := f.GetEvents(ctx, "12/1/2019 00:00:00", "1/31/2020 23:59:59", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.GetEvents(ctx, "garbage", "1/31/2020 23:59:59", 0, 5)
	assert.Error(t, err)

	ev, err := f.GetEventByID(ctx, "HOLIDAY")
	require.NoError(t, err)
	assert.Equal(t, "Christmas", ev.Title)

	_, err = f.GetEventByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.ErrorIs(t, err, source.ErrFetchFailure)
}

func TestFeedCaching(t *testing.T) {
	var (
		status   atomic.Int32
		revalids atomic.Int32
	)
	status.Store(http.StatusOK)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			revalids.Add(1)
		}
		switch code := int(status.Load()); code {
		case http.StatusOK:
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			w.Write(sampleFeed)
		default:
			w.WriteHeader(code)
		}
	}))
	defer srv.Close()

	f := NewFeed(srv.URL, est)
	ctx := context.Background()

	_, err := f.GetEventByID(ctx, "meet-1")
	require.NoError(t, err)

	// 304 serves the cached body.
	_, err = f.GetEventByID(ctx, "meet-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), revalids.Load())

	// A failing feed falls back to the cache.
	status.Store(http.StatusBadGateway)
	_, err = f.GetEventByID(ctx, "meet-1")
	require.NoError(t, err)

	// 401 is reported so the caller can re-authenticate.
	status.Store(http.StatusUnauthorized)
	_, err = f.GetEventByID(ctx, "meet-1")
	assert.ErrorIs(t, err, source.ErrUnauthorized)
}

func TestFeedErrorsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFeed(srv.URL, est).GetEvents(context.Background(), "1/1/2020", "1/2/2020", 0, 0)
	assert.ErrorIs(t, err, source.ErrFetchFailure)
	assert.Equal(t, http.StatusNotFound, source.StatusCode(err))

	_, err = NewFeed("", est).GetEventByID(context.Background(), "x")
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)", redactURL("https://calendar.example.com/private/abc/basic.ics?token=1"))
	assert.Equal(t, "https://h/...(redacted)", redactURL("https://h?x=1"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
