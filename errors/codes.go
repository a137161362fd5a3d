package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Storage errors. These are caller bugs and are never retried.
const (
	// ErrCodeNotOpen indicates an entity-store operation with no channel scope open.
	ErrCodeNotOpen ErrorCode = "NOT_OPEN"
	// ErrCodeUnknownStore indicates an operation on a store name the adapter does not know.
	ErrCodeUnknownStore ErrorCode = "UNKNOWN_STORE"
	// ErrCodeInvalidInput indicates a malformed scope, key or argument.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeStorage indicates a failure inside the persistence engine.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// Stream errors
const (
	// ErrCodeStreamAuth indicates the change feed rejected the credentials (HTTP 401).
	ErrCodeStreamAuth ErrorCode = "STREAM_AUTH"
	// ErrCodeStreamTransient indicates any other connect or read failure.
	ErrCodeStreamTransient ErrorCode = "STREAM_TRANSIENT"
	// ErrCodeMalformedMessage indicates a stream message that could not be decoded.
	ErrCodeMalformedMessage ErrorCode = "MALFORMED_MESSAGE"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates configuration that failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStreamTransient: true,
	ErrCodeStorage:         true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
