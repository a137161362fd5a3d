// Package component manages the lifecycle of the long-lived parts of a cache
// deployment: the storage adapter, an optional Redis connection and the
// change-feed engine. Components start in registration order and stop in
// reverse.
package component
