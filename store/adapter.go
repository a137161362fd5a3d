package store

import "context"

// Adapter is the persistence contract every backend implements.
//
// Row operations act on the open channel scope and fail with NOT_OPEN when
// none is open. Key/value operations take their scope explicitly: channel
// records live in that channel's kv store and require the channel to be
// open; global and session records share one global kv store and are keyed
// "{scope}::{key}".
type Adapter interface {
	// Open materializes a channel scope, closing any other open channel
	// first. Opening the already-open channel, global or session is a no-op.
	Open(ctx context.Context, scope Scope) error

	// Close releases the open channel scope. It is a no-op when none is open.
	Close(ctx context.Context) error

	// DeleteScope destroys the open channel scope's rows and channel KV and
	// leaves no scope open.
	DeleteScope(ctx context.Context) error

	// CurrentScope returns the open channel scope, or "" if none.
	CurrentScope() Scope

	// BulkPut upserts rows by id.
	BulkPut(ctx context.Context, store string, rows []Row) error

	// Get returns the row with the given id. The bool is false when absent.
	Get(ctx context.Context, store, id string) (Row, bool, error)

	// Delete removes a row. Missing ids are ignored.
	Delete(ctx context.Context, store, id string) error

	// GetAll returns up to limit rows in ascending id order. limit <= 0
	// returns every row.
	GetAll(ctx context.Context, store string, limit int) ([]Row, error)

	GetKV(ctx context.Context, scope Scope, key string) ([]byte, bool, error)
	SetKV(ctx context.Context, scope Scope, key string, value []byte) error
	RemoveKV(ctx context.Context, scope Scope, key string) error

	// ClearScope removes every key/value record of scope.
	ClearScope(ctx context.Context, scope Scope) error

	// Shutdown closes the open scope and releases backend resources.
	Shutdown(ctx context.Context) error
}
