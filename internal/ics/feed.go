// Package ics reads events from an iCalendar subscription and exports the
// session's events as an iCalendar document.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/source"
)

// ErrEventNotFound is returned by GetEventByID for a UID the feed lacks.
var ErrEventNotFound = errors.New("event not found in feed")

// cacheEntry holds the last good body and its HTTP cache validators.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
	UpdatedAt    time.Time
}

// Feed is a source.Fetcher backed by an ICS URL. Responses are cached in
// memory and revalidated with ETag / Last-Modified; when the feed is down
// the last good body is served.
type Feed struct {
	URL      string
	Location *time.Location

	client *http.Client

	mu    sync.Mutex
	cache cacheEntry
}

var _ source.Fetcher = (*Feed)(nil)

// NewFeed creates a Feed for url. A nil loc means time.Local.
func NewFeed(url string, loc *time.Location) *Feed {
	return &Feed{
		URL:      url,
		Location: loc,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetEvents returns the feed's events overlapping [startDate, stopDate],
// paged by offset and limit (limit <= 0 means no limit).
func (f *Feed) GetEvents(ctx context.Context, startDate, stopDate string, offset, limit int) ([]model.Event, error) {
	start, err := calendar.ParseDateTime(startDate, f.Location)
	if err != nil {
		return nil, err
	}
	stop, err := calendar.ParseDateTime(stopDate, f.Location)
	if err != nil {
		return nil, err
	}

	all, err := f.events(ctx)
	if err != nil {
		return nil, err
	}
	matched, err := calendar.FilterEvents(all, start, stop)
	if err != nil {
		return nil, err
	}

	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[max(offset, 0):]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetEventByID looks a VEVENT up by UID, ignoring case.
func (f *Feed) GetEventByID(ctx context.Context, id string) (model.Event, error) {
	all, err := f.events(ctx)
	if err != nil {
		return model.Event{}, err
	}
	for _, ev := range all {
		if strings.EqualFold(ev.ID, id) {
			return ev, nil
		}
	}
	return model.Event{}, fmt.Errorf("%w: %w: %s", source.ErrFetchFailure, ErrEventNotFound, id)
}

func (f *Feed) events(ctx context.Context) ([]model.Event, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}
	events, err := ParseICS(body, f.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", source.ErrFetchFailure, err)
	}
	return events, nil
}

// fetch downloads the feed, honoring ETag and Last-Modified.
func (f *Feed) fetch(ctx context.Context) ([]byte, error) {
	if f.URL == "" {
		return nil, errors.New("feed URL is empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cached := f.cache

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}

	// Conditional headers from cache metadata.
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	appLog.Debug("ics fetch start", "url", redactURL(f.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		// Network error; if we have a cached body, fall back to it.
		if len(cached.Body) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "url", redactURL(f.URL))
			return cached.Body, nil
		}
		return nil, fmt.Errorf("%w: %w", source.ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: %w", source.ErrFetchFailure, readErr)
		}
		f.cache = cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
			UpdatedAt:    time.Now().UTC(),
		}
		appLog.Debug("ics fetch success", "url", redactURL(f.URL), "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cached.Body) == 0 {
			return nil, fmt.Errorf("%w: 304 Not Modified but no cached body", source.ErrFetchFailure)
		}
		appLog.Debug("ics fetch not modified; using cache", "url", redactURL(f.URL))
		return cached.Body, nil

	default:
		serr := &source.StatusError{Code: resp.StatusCode, Status: resp.Status}
		if len(cached.Body) > 0 && resp.StatusCode != http.StatusUnauthorized {
			appLog.Error("ics fetch non-OK, using cached body", serr, "url", redactURL(f.URL))
			return cached.Body, nil
		}
		return nil, serr
	}
}

// redactURL hides the path and query of a feed URL for logging, since
// private calendar links embed their secret there.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "ics://...(redacted)"
	}
	host := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host = rest[:i]
	}
	return scheme + "://" + host + "/...(redacted)"
}
