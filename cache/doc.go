// Package cache provides the entity-shaped primitives feature caches use on
// top of a store.Adapter (search, list, filter, bulk add, expire and typed
// key/value access) and the Facade injected into feature services.
//
// Search and Filter load at most DefaultScanCeiling rows and match them in
// memory. Per-channel catalogs are bounded, so this is a documented limit
// rather than an index.
package cache
