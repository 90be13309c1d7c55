package spotify

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports an invalid or missing response format.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidArgument reports a bad page number or detail level. It is
	// always returned before any request is sent.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRateLimited is returned when the service answers 403.
	ErrRateLimited = errors.New("rate limiting has kicked in")
)

// RequestError is returned for any status code the client does not handle
// explicitly.
type RequestError struct {
	StatusCode int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request, response code: %d", e.StatusCode)
}

// DecodeError wraps a failure to parse a response body in the configured
// format.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
