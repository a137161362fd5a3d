// Package errors provides the structured error type shared by the cache
// layers. Every error carries a machine-readable code and a retryable flag
// so callers can tell programming errors (not open, unknown store) from
// transient stream failures.
package errors
