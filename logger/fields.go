package logger

import (
	"time"
)

// Standard field keys used across the cache and sync layers.
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldScope      = "scope"
	FieldStore      = "store"
	FieldChannelID  = "channel_id"
	FieldEntityType = "entity_type"
	FieldEntityID   = "entity_id"
	FieldAction     = "action"
	FieldState      = "state"
	FieldConnID     = "conn_id"
	FieldDelay      = "delay_ms"
	FieldCount      = "count"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("flushed", logger.Fields(logger.FieldCount, 3))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// Masked hides all but the first visible bytes of a secret for logging.
// Secrets no longer than visible are hidden entirely.
func Masked(secret string, visible int) string {
	if len(secret) <= visible {
		return "***"
	}
	return secret[:visible] + "***"
}
