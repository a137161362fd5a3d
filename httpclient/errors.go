package httpclient

import (
	"errors"
	"fmt"
)

// ErrorCode says why a stream request failed.
type ErrorCode int

const (
	// ErrCodeTimeout means the request context ended before a response.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection means no response was received.
	ErrCodeConnection
	// ErrCodeRejected means the server refused the credentials (401/403).
	ErrCodeRejected
	// ErrCodeRequest means the request itself was bad: it could not be built
	// or the server answered with another 4xx.
	ErrCodeRequest
	// ErrCodeUpstream means the server failed (5xx) or is shedding load (429).
	ErrCodeUpstream
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeRejected:
		return "rejected"
	case ErrCodeRequest:
		return "request"
	case ErrCodeUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is a failed stream request. StatusCode is 0 when no response
// arrived.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	// Body holds at most the first 4KiB of an error response.
	Body []byte
	Err  error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Err: err}
}

// ClassifyStatusCode turns an error response into an *Error. It returns nil
// for statuses below 400.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Message: fmt.Sprintf("HTTP %d", statusCode), Body: body}
	switch {
	case statusCode < 400:
		return nil
	case statusCode == 401 || statusCode == 403:
		e.Code = ErrCodeRejected
	case statusCode == 429 || statusCode >= 500:
		e.Code = ErrCodeUpstream
	default:
		e.Code = ErrCodeRequest
	}
	return e
}

// StatusOf returns the HTTP status carried by err, or 0 for connection-level
// failures and foreign errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsUnauthorized reports a 401 specifically; 403 is rejected too but
// means the credentials are valid and lack permission.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == 401
}

// CodeOf returns the classification of err and whether err is an *Error.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
