// Package store defines the storage adapter contract of the cache layer and
// selects a backend at runtime.
//
// Storage is partitioned into scopes. A channel scope ("channel:{id}")
// holds the entity row stores and a channel-local key/value store, and must
// be opened before use; at most one channel scope is open at a time. The
// "global" and "session" scopes only hold key/value records and are always
// addressable.
//
// Backends register themselves by provider name:
//
//	import _ "github.com/kbukum/cachesync/store/sqlite"
//
//	a, err := store.New(store.Config{Provider: "sqlite", Dir: dir}, nil, log)
//	err = a.Open(ctx, store.ChannelScope("1"))
//	err = a.BulkPut(ctx, store.Products, rows)
package store
