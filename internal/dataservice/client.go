// Package dataservice is the HTTP client for the external event data service.
//
// Every response is wrapped in a {"result": ...} envelope. Requests carry
// "Authorization: bearer <token>" when the TokenSource holds a token.
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/source"
)

const (
	eventsEndpoint = "api/events"
	signinEndpoint = "token/signin"

	defaultTimeout = 15 * time.Second
)

// ErrMissingCredentials is returned by Signin before any request is made.
var ErrMissingCredentials = errors.New("username and password must be supplied")

// HTTPClient is the part of *http.Client the data service client uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the data service. It implements source.Fetcher.
type Client struct {
	BaseURL string
	HTTP    HTTPClient
	// Tokens may be nil for an unauthenticated service.
	Tokens TokenSource
	// Location interprets "M/D/YYYY HH:MM:SS" timestamps. Nil means time.Local.
	Location *time.Location
}

var _ source.Fetcher = (*Client)(nil)

// New returns a Client with a 15s HTTP timeout.
func New(baseURL string, tokens TokenSource, loc *time.Location) *Client {
	return &Client{
		BaseURL:  baseURL,
		HTTP:     &http.Client{Timeout: defaultTimeout},
		Tokens:   tokens,
		Location: loc,
	}
}

type envelope[T any] struct {
	Result T `json:"result"`
}

// wireEvent is an event as the service sends it. Timestamps are either
// milliseconds since the epoch or DateTimeLayout strings.
type wireEvent struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartDate   json.RawMessage `json:"startDate"`
	StopDate    json.RawMessage `json:"stopDate"`
}

// GetEvents lists the events between startDate and stopDate.
func (c *Client) GetEvents(ctx context.Context, startDate, stopDate string, offset, limit int) ([]model.Event, error) {
	q := url.Values{}
	q.Set("startDate", startDate)
	q.Set("stopDate", stopDate)
	q.Set("index", strconv.Itoa(offset))
	q.Set("num", strconv.Itoa(limit))

	var env envelope[[]wireEvent]
	if err := c.do(ctx, http.MethodGet, eventsEndpoint, q, nil, &env); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(env.Result))
	for _, w := range env.Result {
		ev, err := c.toEvent(w)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// GetEventByID fetches the full record of one event.
func (c *Client) GetEventByID(ctx context.Context, id string) (model.Event, error) {
	var env envelope[wireEvent]
	if err := c.do(ctx, http.MethodGet, eventsEndpoint+"/"+url.PathEscape(id), nil, nil, &env); err != nil {
		return model.Event{}, err
	}
	return c.toEvent(env.Result)
}

// Signin exchanges credentials for a token. Wrong credentials come back as
// a *source.StatusError with code 403.
func (c *Client) Signin(ctx context.Context, username, password string) (string, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return "", ErrMissingCredentials
	}

	body := map[string]string{"username": username, "password": password}
	var env envelope[string]
	if err := c.do(ctx, http.MethodPost, signinEndpoint, nil, body, &env); err != nil {
		return "", err
	}
	if env.Result == "" {
		return "", fmt.Errorf("%w: signin returned no token", source.ErrFetchFailure)
	}
	return env.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any, out any) error {
	endpoint := strings.TrimSuffix(c.BaseURL, "/") + "/" + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "bearer "+token)
		}
	}

	appLog.Debug("data service request", "method", method, "path", path)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", source.ErrFetchFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized && c.Tokens != nil {
			c.Tokens.Invalidate()
		}
		return fmt.Errorf("%s %s: %w", method, path, &source.StatusError{Code: resp.StatusCode, Status: resp.Status})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", source.ErrFetchFailure, path, err)
	}
	return nil
}

func (c *Client) httpClient() HTTPClient {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) toEvent(w wireEvent) (model.Event, error) {
	start, err := parseInstant(w.StartDate, c.Location)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: event %s startDate: %w", source.ErrFetchFailure, w.ID, err)
	}
	stop, err := parseInstant(w.StopDate, c.Location)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: event %s stopDate: %w", source.ErrFetchFailure, w.ID, err)
	}
	return model.Event{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		IsRemote:    true,
		Start:       start,
		Stop:        stop,
	}, nil
}

// parseInstant accepts a JSON number of epoch milliseconds, the same number
// as a string, or a calendar.DateTimeLayout string.
func parseInstant(raw json.RawMessage, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", calendar.ErrInvalidDate)
	}

	if strings.HasPrefix(v, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", calendar.ErrInvalidDate, err)
		}
		if ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return time.UnixMilli(ms).In(loc), nil
		}
		return calendar.ParseDateTime(s, loc)
	}

	ms, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", calendar.ErrInvalidDate, v)
	}
	return time.UnixMilli(int64(ms)).In(loc), nil
}
