package validation

import (
	"errors"
	"regexp"
)

var (
	// ErrIDEmpty indicates that a resource id is missing
	ErrIDEmpty = errors.New("id cannot be empty")

	// ErrIDTooLong indicates that a resource id exceeds the maximum length
	ErrIDTooLong = errors.New("id exceeds maximum length of 128 characters")

	// ErrInvalidID indicates that a resource id contains characters upstream never issues
	ErrInvalidID = errors.New("id may only contain letters, numbers, hyphens and underscores")
)

const maxIDLength = 128

// resourceIDRegex matches the ids upstream issues (uuid, cuid, numeric)
var resourceIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateResourceID checks a path id before it is spliced into an upstream URL
func ValidateResourceID(id string) error {
	if id == "" {
		return ErrIDEmpty
	}
	if len(id) > maxIDLength {
		return ErrIDTooLong
	}
	if !resourceIDRegex.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}
