package fmailer

import (
	"errors"
	"fmt"
)

// ErrResultTimeout is returned by TaskHandle.Result when the supplied context
// expires before the send completes. The underlying send is not cancelled and
// the handle remains usable; a later Result call can still observe the outcome.
var ErrResultTimeout = errors.New("fmailer: timed out waiting for send result")

// ClientError reports invalid construction-time configuration or an invalid
// mail value handed to a builder.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("fmailer: %s", e.Message)
}

// APIError is returned when the Fmailer backend answered with a non-success
// HTTP status. Body holds the response body verbatim.
type APIError struct {
	Body       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fmailer: api error: status=%d body=%s", e.StatusCode, e.Body)
}

// TransportError is returned when the HTTP request never produced a response:
// connection refused, DNS failure, timeout and the like.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fmailer: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
