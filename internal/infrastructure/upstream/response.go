package upstream

import (
	"encoding/json"
	"fmt"

	"flowboard/internal/domain/session"
)

// Kind tags what upstream answered
type Kind int

const (
	// KindSuccess is a 2xx answer with a JSON body
	KindSuccess Kind = iota
	// KindRejected is a non-2xx answer; Body is JSON or {}
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Response is an answer from upstream, decoded at the gateway boundary
type Response struct {
	Kind   Kind
	Status int
	Body   json.RawMessage
}

// OK reports whether upstream accepted the request
func (r *Response) OK() bool {
	return r.Kind == KindSuccess
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

// Rejection converts a rejected response into the error relayed to clients
func (r *Response) Rejection() *session.UpstreamRejection {
	return &session.UpstreamRejection{Status: r.Status, Body: r.Body}
}

// TransportError means upstream produced no usable answer
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
