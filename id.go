package ninjadb

import (
	"strconv"

	"github.com/google/uuid"
)

// NewID generates a UUIDv7 (time-ordered) identifier.
// Used for opaque tokens; document ids are assigned by the backend.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fall back to UUIDv4 if NewV7 fails (extremely rare)
		id = uuid.New()
	}
	return id.String()
}

// IsValidID checks if a string is a valid UUID
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// FormatIntID renders a numeric backend id as the mapper's string id
func FormatIntID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseIntID parses a string id produced by a backend with numeric keys
// (file store, Datastore). Only positive integers are valid.
func ParseIntID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, WithContext(ErrInvalidID, map[string]interface{}{
			"id":     id,
			"reason": "expected a positive integer",
		})
	}
	return n, nil
}
