// Package memory is an in-process store.Adapter. Channel data survives
// Close and is dropped only by DeleteScope, like a durable backend.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/store"
)

func init() {
	store.RegisterFactory(store.ProviderMemory, func(_ store.Config, _ any, log *logger.Logger) (store.Adapter, error) {
		return New(log), nil
	})
}

type channelData struct {
	rows map[string]map[string]store.Row
	kv   map[string][]byte
}

func newChannelData() *channelData {
	rows := make(map[string]map[string]store.Row)
	for _, name := range store.RowStores() {
		rows[name] = make(map[string]store.Row)
	}
	return &channelData{rows: rows, kv: make(map[string][]byte)}
}

// Adapter keeps every scope in memory.
type Adapter struct {
	mu       sync.RWMutex
	channels map[string]*channelData
	current  string
	global   map[string][]byte
	log      *logger.Logger
}

var _ store.Adapter = (*Adapter)(nil)

// New creates an empty in-memory adapter.
func New(log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{
		channels: make(map[string]*channelData),
		global:   make(map[string][]byte),
		log:      log,
	}
}

// Open makes scope the open channel scope.
func (a *Adapter) Open(_ context.Context, scope store.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.IsChannel() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id := scope.ChannelID()
	if a.current == id {
		return nil
	}
	if a.current != "" {
		a.log.Debug("closing channel scope", logger.Fields(logger.FieldScope, string(store.ChannelScope(a.current))))
		a.current = ""
	}
	if _, ok := a.channels[id]; !ok {
		a.channels[id] = newChannelData()
	}
	a.current = id
	a.log.Debug("opened channel scope", logger.Fields(logger.FieldScope, string(scope)))
	return nil
}

// Close releases the open channel scope.
func (a *Adapter) Close(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = ""
	return nil
}

// DeleteScope drops the open channel's data.
func (a *Adapter) DeleteScope(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == "" {
		return errors.NotOpen("")
	}
	delete(a.channels, a.current)
	a.log.Info("deleted channel scope", logger.Fields(logger.FieldScope, string(store.ChannelScope(a.current))))
	a.current = ""
	return nil
}

// CurrentScope returns the open channel scope, or "".
func (a *Adapter) CurrentScope() store.Scope {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == "" {
		return ""
	}
	return store.ChannelScope(a.current)
}

// openStore returns the rows of name in the open channel. Callers hold a.mu.
func (a *Adapter) openStore(name string) (map[string]store.Row, error) {
	if a.current == "" {
		return nil, errors.NotOpen(name)
	}
	if err := store.CheckRowStore(name); err != nil {
		return nil, err
	}
	return a.channels[a.current].rows[name], nil
}

// BulkPut upserts rows by id.
func (a *Adapter) BulkPut(_ context.Context, name string, rows []store.Row) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, err := a.openStore(name)
	if err != nil {
		return err
	}
	for _, r := range rows {
		m[r.ID] = r.Clone()
	}
	return nil
}

// Get returns one row.
func (a *Adapter) Get(_ context.Context, name, id string) (store.Row, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, err := a.openStore(name)
	if err != nil {
		return store.Row{}, false, err
	}
	r, ok := m[id]
	if !ok {
		return store.Row{}, false, nil
	}
	return r.Clone(), true, nil
}

// Delete removes one row.
func (a *Adapter) Delete(_ context.Context, name, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, err := a.openStore(name)
	if err != nil {
		return err
	}
	delete(m, id)
	return nil
}

// GetAll returns rows in ascending id order.
func (a *Adapter) GetAll(_ context.Context, name string, limit int) ([]store.Row, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, err := a.openStore(name)
	if err != nil {
		return nil, err
	}
	keys := slices.Sorted(maps.Keys(m))
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]store.Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k].Clone())
	}
	return out, nil
}

// kvFor resolves the map and key a scoped record lives under. Callers hold a.mu.
func (a *Adapter) kvFor(scope store.Scope, key string) (map[string][]byte, string, error) {
	if err := scope.Validate(); err != nil {
		return nil, "", err
	}
	if scope.IsChannel() {
		if a.current != scope.ChannelID() {
			return nil, "", errors.NotOpen(store.KV).WithDetail("scope", string(scope))
		}
		return a.channels[a.current].kv, key, nil
	}
	return a.global, store.NamespacedKey(scope, key), nil
}

// GetKV returns a scoped record.
func (a *Adapter) GetKV(_ context.Context, scope store.Scope, key string) ([]byte, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, k, err := a.kvFor(scope, key)
	if err != nil {
		return nil, false, err
	}
	v, ok := m[k]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// SetKV writes a scoped record.
func (a *Adapter) SetKV(_ context.Context, scope store.Scope, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, k, err := a.kvFor(scope, key)
	if err != nil {
		return err
	}
	m[k] = slices.Clone(value)
	return nil
}

// RemoveKV deletes a scoped record.
func (a *Adapter) RemoveKV(_ context.Context, scope store.Scope, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, k, err := a.kvFor(scope, key)
	if err != nil {
		return err
	}
	delete(m, k)
	return nil
}

// ClearScope removes every record of scope.
func (a *Adapter) ClearScope(_ context.Context, scope store.Scope) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := scope.Validate(); err != nil {
		return err
	}
	if scope.IsChannel() {
		if a.current != scope.ChannelID() {
			return errors.NotOpen(store.KV).WithDetail("scope", string(scope))
		}
		clear(a.channels[a.current].kv)
		return nil
	}
	prefix := store.NamespacePrefix(scope)
	maps.DeleteFunc(a.global, func(k string, _ []byte) bool {
		return strings.HasPrefix(k, prefix)
	})
	return nil
}

// Shutdown closes the open scope. Data is kept until the adapter is dropped.
func (a *Adapter) Shutdown(ctx context.Context) error {
	return a.Close(ctx)
}
