package session

import (
	"errors"
	"fmt"
)

// Authentication errors
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrMissingRefreshToken = errors.New("no refresh token")
)

// ValidationError reports required input missing from the caller's request.
// It is always raised before any upstream call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error for a missing or malformed field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UpstreamRejection is a non-2xx answer from the upstream API.
// Status and Body are relayed to the client untouched.
type UpstreamRejection struct {
	Status int
	Body   []byte
}

func (e *UpstreamRejection) Error() string {
	return fmt.Sprintf("upstream rejected request with status %d", e.Status)
}

// TransportFailure means no usable answer came back from upstream:
// the network failed, the call timed out, or a success body was malformed.
type TransportFailure struct {
	Op  string
	Err error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("%s: upstream transport failure: %v", e.Op, e.Err)
}

func (e *TransportFailure) Unwrap() error {
	return e.Err
}
