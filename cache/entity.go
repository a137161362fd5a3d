package cache

import (
	"encoding/json"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/store"
)

const (
	// DefaultLimit caps Search, List and Filter results when no limit is given.
	DefaultLimit = 50
	// DefaultScanCeiling is the most rows Search and Filter load from a store.
	DefaultScanCeiling = 1000
)

// Entity is a cached entity as feature caches see it.
type Entity[T any] struct {
	ID         string
	Searchable string
	Payload    T
}

func (e Entity[T]) row() (store.Row, error) {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return store.Row{}, errors.InvalidInput("payload", err.Error()).WithDetail("id", e.ID)
	}
	return store.Row{ID: e.ID, Searchable: e.Searchable, Payload: b}, nil
}

func decodePayload[T any](r store.Row) (T, error) {
	var v T
	if err := json.Unmarshal(r.Payload, &v); err != nil {
		return v, errors.Storage("decode payload", err).WithDetail("id", r.ID)
	}
	return v, nil
}

func decodeRows[T any](rows []store.Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := decodePayload[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
