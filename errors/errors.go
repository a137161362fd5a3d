package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type of the cache layers.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// NotOpen reports an entity-store operation attempted without an open channel scope.
// store may be empty for scope-level operations.
func NotOpen(store string) *AppError {
	if store == "" {
		return &AppError{Code: ErrCodeNotOpen, Message: "no channel scope is open"}
	}
	return &AppError{
		Code: ErrCodeNotOpen, Message: fmt.Sprintf("no channel scope is open for store %q", store),
		Details: map[string]any{"store": store},
	}
}

// UnknownStore reports a store name the adapter does not recognize.
func UnknownStore(store string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownStore, Message: fmt.Sprintf("unknown store %q", store),
		Details: map[string]any{"store": store},
	}
}

// InvalidInput reports a malformed argument.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Storage wraps a failure of the underlying persistence engine.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("storage operation %s failed", op),
		Retryable: true, Cause: cause,
		Details: map[string]any{"operation": op},
	}
}

// StreamAuth reports a change feed that rejected the channel credentials.
func StreamAuth(channelID string) *AppError {
	return &AppError{
		Code: ErrCodeStreamAuth, Message: "change feed rejected the channel token",
		Details: map[string]any{"channel_id": channelID},
	}
}

// StreamTransient wraps a recoverable connect or read failure.
func StreamTransient(channelID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStreamTransient, Message: "change feed connection failed",
		Retryable: true, Cause: cause,
		Details: map[string]any{"channel_id": channelID},
	}
}

// MalformedMessage wraps a stream message decode failure.
func MalformedMessage(cause error) *AppError {
	return &AppError{
		Code: ErrCodeMalformedMessage, Message: "malformed change message",
		Cause: cause,
	}
}

// InvalidConfig reports a configuration validation failure.
func InvalidConfig(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: message}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsNotOpen reports whether err is a NotOpen error.
func IsNotOpen(err error) bool { return HasCode(err, ErrCodeNotOpen) }

// IsUnknownStore reports whether err is an UnknownStore error.
func IsUnknownStore(err error) bool { return HasCode(err, ErrCodeUnknownStore) }

// IsStreamAuth reports whether err is a StreamAuth error.
func IsStreamAuth(err error) bool { return HasCode(err, ErrCodeStreamAuth) }

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
