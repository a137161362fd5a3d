// Package cachesync keeps the local cache in step with the backend's change
// feed.
//
// The Engine holds one stream per active channel. Right after connecting it
// is catching up: messages are delayed, buffered and deduplicated by
// (entity type, id) so a burst of changes to one entity is applied once.
// After that it is live and dispatches every message as it arrives. Each
// message is routed to the Handler registered for its entity type, which
// re-fetches (hydrates) or invalidates the cached row.
//
// Transient failures reconnect with exponential backoff. A rejected token
// stops the engine until a new channel or token is set.
package cachesync
