package cache

import (
	"context"
	"encoding/json"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/store"
)

// GetKV decodes the record at (scope, key). The bool is false when the
// record does not exist.
func GetKV[T any](ctx context.Context, a store.Adapter, scope store.Scope, key string) (T, bool, error) {
	var v T
	ok, err := getKVInto(ctx, a, scope, key, &v)
	return v, ok, err
}

func getKVInto(ctx context.Context, a store.Adapter, scope store.Scope, key string, out any) (bool, error) {
	raw, ok, err := a.GetKV(ctx, scope, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Storage("decode kv", err).WithDetail("key", key)
	}
	return true, nil
}

// SetKV stores value at (scope, key) as JSON.
func SetKV(ctx context.Context, a store.Adapter, scope store.Scope, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.InvalidInput("value", err.Error()).WithDetail("key", key)
	}
	return a.SetKV(ctx, scope, key, b)
}

// RemoveKV deletes the record at (scope, key).
func RemoveKV(ctx context.Context, a store.Adapter, scope store.Scope, key string) error {
	return a.RemoveKV(ctx, scope, key)
}

// ClearScope deletes every record of scope.
func ClearScope(ctx context.Context, a store.Adapter, scope store.Scope) error {
	return a.ClearScope(ctx, scope)
}
