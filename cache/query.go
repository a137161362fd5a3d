package cache

import (
	"context"

	"github.com/kbukum/cachesync/store"
)

// List returns up to limit payloads in ascending id order.
func List[T any](ctx context.Context, a store.Adapter, storeName string, limit int) ([]T, error) {
	rows, err := a.GetAll(ctx, storeName, effectiveLimit(limit))
	if err != nil {
		return nil, err
	}
	return decodeRows[T](rows)
}

// Filter returns up to limit payloads for which pred holds, scanning at most
// DefaultScanCeiling rows.
func Filter[T any](ctx context.Context, a store.Adapter, storeName string, pred func(T) bool, limit int) ([]T, error) {
	rows, err := a.GetAll(ctx, storeName, DefaultScanCeiling)
	if err != nil {
		return nil, err
	}
	n := effectiveLimit(limit)
	out := make([]T, 0)
	for _, r := range rows {
		v, err := decodePayload[T](r)
		if err != nil {
			return nil, err
		}
		if pred(v) {
			out = append(out, v)
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}

// BulkAdd upserts entities into storeName.
func BulkAdd[T any](ctx context.Context, a store.Adapter, storeName string, entities []Entity[T]) error {
	rows := make([]store.Row, 0, len(entities))
	for _, e := range entities {
		r, err := e.row()
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}
	return a.BulkPut(ctx, storeName, rows)
}

// ExpireItem removes one entity from storeName.
func ExpireItem(ctx context.Context, a store.Adapter, storeName, id string) error {
	return a.Delete(ctx, storeName, id)
}
