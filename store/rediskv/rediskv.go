// Package rediskv is a store.Adapter on Redis hashes, for deployments where
// several processes share one cache. Each channel store is one hash keyed
// "{prefix}:channel:{id}:{store}"; global and session records share the
// hash "{prefix}:global:kv".
package rediskv

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/redis"
	"github.com/kbukum/cachesync/store"
)

func init() {
	store.RegisterFactory(store.ProviderRedis, func(cfg store.Config, providerCfg any, log *logger.Logger) (store.Adapter, error) {
		client, ok := providerCfg.(*redis.Client)
		if !ok || client == nil {
			return nil, errors.InvalidConfig(fmt.Sprintf("redis provider needs a *redis.Client, got %T", providerCfg))
		}
		return New(client, cfg.KeyPrefix, log), nil
	})
}

// record is the hash value of one row.
type record struct {
	Searchable string `json:"s"`
	Payload    []byte `json:"p"`
}

// Adapter keeps scopes in Redis hashes. The open scope is process-local.
type Adapter struct {
	client  *redis.Client
	prefix  string
	current string
	log     *logger.Logger
	mu      sync.RWMutex
}

var _ store.Adapter = (*Adapter)(nil)

// New creates an adapter writing keys under prefix.
func New(client *redis.Client, prefix string, log *logger.Logger) *Adapter {
	if prefix == "" {
		prefix = store.DefaultKeyPrefix
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{client: client, prefix: prefix, log: log}
}

// ChannelKey returns the hash key of one store of a channel.
func (a *Adapter) ChannelKey(channelID, name string) string {
	return a.prefix + ":channel:" + channelID + ":" + name
}

// GlobalKey returns the hash key shared by global and session records.
func (a *Adapter) GlobalKey() string {
	return a.prefix + ":global:" + store.KV
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
	if a.current == scope.ChannelID() {
		return nil
	}
	if a.current != "" {
		a.log.Debug("closing channel scope", logger.Fields(logger.FieldScope, string(store.ChannelScope(a.current))))
	}
	a.current = scope.ChannelID()
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

// DeleteScope removes every hash of the open channel.
func (a *Adapter) DeleteScope(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == "" {
		return errors.NotOpen("")
	}
	keys := make([]string, 0, len(store.RowStores())+1)
	for _, name := range append(store.RowStores(), store.KV) {
		keys = append(keys, a.ChannelKey(a.current, name))
	}
	if err := a.client.Del(ctx, keys...); err != nil {
		return errors.Storage("delete scope", err)
	}
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

// rowsKey returns the hash of a row store in the open channel.
func (a *Adapter) rowsKey(name string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == "" {
		return "", errors.NotOpen(name)
	}
	if err := store.CheckRowStore(name); err != nil {
		return "", err
	}
	return a.ChannelKey(a.current, name), nil
}

// BulkPut upserts rows by id.
func (a *Adapter) BulkPut(ctx context.Context, name string, rows []store.Row) error {
	key, err := a.rowsKey(name)
	if err != nil {
		return err
	}
	values := make(map[string][]byte, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(record{Searchable: r.Searchable, Payload: r.Payload})
		if err != nil {
			return errors.Storage("encode", err)
		}
		values[r.ID] = b
	}
	if err := a.client.HSet(ctx, key, values); err != nil {
		return errors.Storage("put", err)
	}
	return nil
}

func decodeRow(id string, raw []byte) (store.Row, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return store.Row{}, errors.Storage("decode", err).WithDetail("id", id)
	}
	return store.Row{ID: id, Searchable: rec.Searchable, Payload: rec.Payload}, nil
}

// Get returns one row.
func (a *Adapter) Get(ctx context.Context, name, id string) (store.Row, bool, error) {
	key, err := a.rowsKey(name)
	if err != nil {
		return store.Row{}, false, err
	}
	raw, ok, err := a.client.HGet(ctx, key, id)
	if err != nil {
		return store.Row{}, false, errors.Storage("get", err)
	}
	if !ok {
		return store.Row{}, false, nil
	}
	r, err := decodeRow(id, raw)
	if err != nil {
		return store.Row{}, false, err
	}
	return r, true, nil
}

// Delete removes one row.
func (a *Adapter) Delete(ctx context.Context, name, id string) error {
	key, err := a.rowsKey(name)
	if err != nil {
		return err
	}
	if err := a.client.HDel(ctx, key, id); err != nil {
		return errors.Storage("delete", err)
	}
	return nil
}

// GetAll returns rows in ascending id order.
func (a *Adapter) GetAll(ctx context.Context, name string, limit int) ([]store.Row, error) {
	key, err := a.rowsKey(name)
	if err != nil {
		return nil, err
	}
	all, err := a.client.HGetAll(ctx, key)
	if err != nil {
		return nil, errors.Storage("get all", err)
	}
	out := make([]store.Row, 0, len(all))
	for id, raw := range all {
		r, err := decodeRow(id, []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	store.SortRows(out)
	return store.Limit(out, limit), nil
}

// kvFor resolves the hash and field a scoped record lives under.
func (a *Adapter) kvFor(scope store.Scope, key string) (string, string, error) {
	if err := scope.Validate(); err != nil {
		return "", "", err
	}
	if scope.IsChannel() {
		a.mu.RLock()
		defer a.mu.RUnlock()
		if a.current != scope.ChannelID() {
			return "", "", errors.NotOpen(store.KV).WithDetail("scope", string(scope))
		}
		return a.ChannelKey(a.current, store.KV), key, nil
	}
	return a.GlobalKey(), store.NamespacedKey(scope, key), nil
}

// GetKV returns a scoped record.
func (a *Adapter) GetKV(ctx context.Context, scope store.Scope, key string) ([]byte, bool, error) {
	hash, field, err := a.kvFor(scope, key)
	if err != nil {
		return nil, false, err
	}
	v, ok, err := a.client.HGet(ctx, hash, field)
	if err != nil {
		return nil, false, errors.Storage("get kv", err)
	}
	return v, ok, nil
}

// SetKV writes a scoped record.
func (a *Adapter) SetKV(ctx context.Context, scope store.Scope, key string, value []byte) error {
	hash, field, err := a.kvFor(scope, key)
	if err != nil {
		return err
	}
	if err := a.client.HSet(ctx, hash, map[string][]byte{field: value}); err != nil {
		return errors.Storage("set kv", err)
	}
	return nil
}

// RemoveKV deletes a scoped record.
func (a *Adapter) RemoveKV(ctx context.Context, scope store.Scope, key string) error {
	hash, field, err := a.kvFor(scope, key)
	if err != nil {
		return err
	}
	if err := a.client.HDel(ctx, hash, field); err != nil {
		return errors.Storage("remove kv", err)
	}
	return nil
}

// ClearScope removes every record of scope.
func (a *Adapter) ClearScope(ctx context.Context, scope store.Scope) error {
	hash, _, err := a.kvFor(scope, "")
	if err != nil {
		return err
	}
	if scope.IsChannel() {
		if err := a.client.Del(ctx, hash); err != nil {
			return errors.Storage("clear scope", err)
		}
		return nil
	}
	fields, err := a.client.HKeys(ctx, hash)
	if err != nil {
		return errors.Storage("clear scope", err)
	}
	prefix := store.NamespacePrefix(scope)
	fields = slices.DeleteFunc(fields, func(f string) bool {
		return !strings.HasPrefix(f, prefix)
	})
	if err := a.client.HDel(ctx, hash, fields...); err != nil {
		return errors.Storage("clear scope", err)
	}
	return nil
}

// Shutdown closes the open scope. The redis client is owned by the caller.
func (a *Adapter) Shutdown(ctx context.Context) error {
	return a.Close(ctx)
}
