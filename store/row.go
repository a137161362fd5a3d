package store

import (
	"slices"
	"strings"

	"github.com/kbukum/cachesync/errors"
)

// Row stores of a channel scope.
const (
	Products     = "products"
	Customers    = "customers"
	Suppliers    = "suppliers"
	SessionState = "sessionState"

	// KV is the reserved key/value store name. Row operations on it fail
	// with UNKNOWN_STORE.
	KV = "kv"
)

var rowStores = []string{Products, Customers, Suppliers, SessionState}

// RowStores returns the names of the entity row stores.
func RowStores() []string {
	return slices.Clone(rowStores)
}

// CheckRowStore returns an UNKNOWN_STORE error unless name is a row store.
func CheckRowStore(name string) error {
	if slices.Contains(rowStores, name) {
		return nil
	}
	return errors.UnknownStore(name)
}

// Row is one cached entity. ID is unique within a store; Searchable is the
// pre-built text the search primitive matches against; Payload is the
// serialized entity.
type Row struct {
	ID         string
	Searchable string
	Payload    []byte
}

// Clone returns a copy of r that shares no memory with it.
func (r Row) Clone() Row {
	r.Payload = slices.Clone(r.Payload)
	return r
}

// SortRows orders rows by ascending id, the enumeration order of GetAll.
func SortRows(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// Limit truncates rows to limit entries. limit <= 0 keeps every row.
func Limit(rows []Row, limit int) []Row {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
