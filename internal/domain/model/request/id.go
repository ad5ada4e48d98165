package request

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a correlation id for a request
// Format: ULID (e.g., 01JB6X8Y2K9FQR4T3VWHGP5M2C)
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// IsValidID reports whether id parses as a ULID
func IsValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
