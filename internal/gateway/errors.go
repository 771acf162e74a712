package gateway

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is raised at construction, before any network attempt.
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// TransportError is an infrastructure failure: network error, timeout, or
// a non-success HTTP status. Transport errors are retryable.
type TransportError struct {
	Status int // HTTP status code, 0 for network-level failures
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a contract violation by the model: the call succeeded but
// the response payload could not be extracted or decoded. Never retried;
// a model that ignored its instructions will ignore them again.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsRetryable reports whether an attempt error should consume another
// slot in the retry budget. The distinction is made at the type level,
// not by string inspection.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
