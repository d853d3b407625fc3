package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

const (
	// DefaultIDLength is the number of digits in generated event ids.
	DefaultIDLength = 10

	// maxIDAttempts is the initial draw plus 100 retries.
	maxIDAttempts = 101
)

// ErrTooManyCollisions is returned when no free id was found.
var ErrTooManyCollisions = errors.New("too many id collisions")

// IDGenerator returns an id not used by any of existing.
type IDGenerator func(existing []model.Event) (string, error)

// NewIDGenerator binds GenerateID to a random source and length.
// A nil r means crypto/rand.
func NewIDGenerator(r io.Reader, length int) IDGenerator {
	return func(existing []model.Event) (string, error) {
		return GenerateID(r, length, existing)
	}
}

// GenerateID draws length random bytes, maps each to a decimal digit and
// retries while the result collides (case-insensitively) with an existing id.
func GenerateID(r io.Reader, length int, existing []model.Event) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: id length %d", calendar.ErrInvalidArgument, length)
	}
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, length)
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}

		var b strings.Builder
		b.Grow(length)
		for _, v := range buf {
			d, err := digit(r, v)
			if err != nil {
				return "", err
			}
			b.WriteByte(d)
		}
		id := b.String()

		if indexOf(existing, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: gave up after %d attempts", ErrTooManyCollisions, maxIDAttempts)
}

// digitLimit is the largest multiple of 10 a byte can hold. Bytes at or
// above it are redrawn so every digit is equally likely.
const digitLimit = 250

// digit maps v to '0'..'9', reading replacement bytes from r while v falls
// in the uneven tail.
func digit(r io.Reader, v byte) (byte, error) {
	var one [1]byte
	for v >= digitLimit {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return 0, fmt.Errorf("read random bytes: %w", err)
		}
		v = one[0]
	}
	return '0' + v%10, nil
}

// indexOf returns the position of the first event whose id matches id
// ignoring case, or -1.
func indexOf(events []model.Event, id string) int {
	for i := range events {
		if strings.EqualFold(events[i].ID, id) {
			return i
		}
	}
	return -1
}
