// Package source defines the event-fetch collaborator and its error contract.
// The data service client and the ICS feed both implement Fetcher.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"monthcal/internal/model"
)

var (
	// ErrFetchFailure covers network and non-200 HTTP failures. The store
	// turns it into StatusError.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrUnauthorized is a 401 from the service. It triggers
	// re-authentication rather than an error state.
	ErrUnauthorized = errors.New("unauthorized")
)

// Fetcher loads events. Date strings use calendar.DateTimeLayout.
type Fetcher interface {
	GetEvents(ctx context.Context, startDate, stopDate string, offset, limit int) ([]model.Event, error)
	GetEventByID(ctx context.Context, id string) (model.Event, error)
}

// StatusError is a non-200 response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.Code)
	}
	return fmt.Sprintf("unexpected status %d (%s)", e.Code, status)
}

// Is lets errors.Is match every StatusError against ErrFetchFailure and a 401
// against ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrFetchFailure:
		return true
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
