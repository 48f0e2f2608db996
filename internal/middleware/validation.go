package middleware

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxSelectedIDs  = 50
	maxTimeInputLen = 32
)

// CanonicalSessionID accepts any UUID spelling (braced, urn:uuid:, upper
// case) and returns the lowercase hyphenated form.
func CanonicalSessionID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", errors.New("invalid session ID format")
	}
	return parsed.String(), nil
}

// ValidateIDs validates a list of referenced record ids.
func ValidateIDs(field string, ids []int64) error {
	if len(ids) > maxSelectedIDs {
		return errors.New(field + " has too many entries")
	}
	for _, id := range ids {
		if id <= 0 {
			return errors.New(field + " must contain positive ids")
		}
	}
	return nil
}

// ValidateTimeInput bounds a free-form date-time value.
func ValidateTimeInput(value string) error {
	if len(value) > maxTimeInputLen {
		return errors.New("time value exceeds maximum length")
	}
	if !utf8.ValidString(value) {
		return errors.New("time value must be valid UTF-8")
	}
	return nil
}

// ValidateDate validates an optional YYYY-MM-DD date.
func ValidateDate(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	return nil
}
