// Package sqlite is the durable store.Adapter. Each channel scope is its own
// database file in the configured directory; global and session records
// share global.db.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/store"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const globalFile = "global.db"

func init() {
	store.RegisterFactory(store.ProviderSQLite, func(cfg store.Config, _ any, log *logger.Logger) (store.Adapter, error) {
		return Open(cfg.Dir, log)
	})
}

// Adapter persists scopes in SQLite files under one directory.
type Adapter struct {
	dir     string
	global  *sql.DB
	channel *sql.DB
	current string
	log     *logger.Logger
	mu      sync.RWMutex
}

var _ store.Adapter = (*Adapter)(nil)

// Open creates dir if needed and opens its global database.
func Open(dir string, log *logger.Logger) (*Adapter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.InvalidConfig("store.dir is required for the sqlite provider")
	}
	if log == nil {
		log = logger.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Storage("mkdir", err)
	}
	global, err := openDB(filepath.Join(dir, globalFile), "schema/global.sql")
	if err != nil {
		return nil, err
	}
	log.Info("sqlite store opened", logger.Fields("dir", dir))
	return &Adapter{dir: dir, global: global, log: log}, nil
}

func openDB(path, schemaFile string) (*sql.DB, error) {
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Storage("open", err)
	}
	db.SetMaxOpenConns(1)

	schema, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		_ = db.Close()
		return nil, errors.Storage("read schema", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		_ = db.Close()
		return nil, errors.Storage("apply schema", err)
	}
	return db, nil
}

// ChannelFile returns the database file name of a channel.
func ChannelFile(channelID string) string {
	return "channel-" + sanitize(channelID) + ".db"
}

// sanitize keeps [A-Za-z0-9_-] and hex-escapes every other byte as ~xx, so
// distinct ids never share a file.
func sanitize(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "~%02x", c)
		}
	}
	return b.String()
}

// Open makes scope the open channel scope.
func (a *Adapter) Open(ctx context.Context, scope store.Scope) error {
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
	if err := a.closeLocked(); err != nil {
		return err
	}
	db, err := openDB(filepath.Join(a.dir, ChannelFile(id)), "schema/channel.sql")
	if err != nil {
		return err
	}
	a.channel, a.current = db, id
	a.log.Debug("opened channel scope", logger.Fields(logger.FieldScope, string(scope)))
	return nil
}

func (a *Adapter) closeLocked() error {
	if a.channel == nil {
		return nil
	}
	err := a.channel.Close()
	a.log.Debug("closed channel scope", logger.Fields(logger.FieldScope, string(store.ChannelScope(a.current))))
	a.channel, a.current = nil, ""
	if err != nil {
		return errors.Storage("close", err)
	}
	return nil
}

// Close releases the open channel scope.
func (a *Adapter) Close(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

// DeleteScope closes the open channel and removes its database files.
func (a *Adapter) DeleteScope(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.channel == nil {
		return errors.NotOpen("")
	}
	id := a.current
	if err := a.closeLocked(); err != nil {
		return err
	}
	base := filepath.Join(a.dir, ChannelFile(id))
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(base + suffix); err != nil && !stderrors.Is(err, os.ErrNotExist) {
			return errors.Storage("remove", err)
		}
	}
	a.log.Info("deleted channel scope", logger.Fields(logger.FieldScope, string(store.ChannelScope(id))))
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

// rowsDB returns the open channel database. Callers hold a.mu.
func (a *Adapter) rowsDB(name string) (*sql.DB, error) {
	if a.channel == nil {
		return nil, errors.NotOpen(name)
	}
	if err := store.CheckRowStore(name); err != nil {
		return nil, err
	}
	return a.channel, nil
}

// BulkPut upserts rows by id in one transaction.
func (a *Adapter) BulkPut(ctx context.Context, name string, rows []store.Row) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, err := a.rowsDB(name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (store, id, searchable, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(store, id) DO UPDATE SET searchable = excluded.searchable, payload = excluded.payload`)
	if err != nil {
		return errors.Storage("prepare", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, name, r.ID, r.Searchable, r.Payload); err != nil {
			return errors.Storage("put", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Storage("commit", err)
	}
	return nil
}

// Get returns one row.
func (a *Adapter) Get(ctx context.Context, name, id string) (store.Row, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, err := a.rowsDB(name)
	if err != nil {
		return store.Row{}, false, err
	}
	r := store.Row{ID: id}
	err = db.QueryRowContext(ctx,
		`SELECT searchable, payload FROM entities WHERE store = ? AND id = ?`, name, id,
	).Scan(&r.Searchable, &r.Payload)
	if stderrors.Is(err, sql.ErrNoRows) {
		return store.Row{}, false, nil
	}
	if err != nil {
		return store.Row{}, false, errors.Storage("get", err)
	}
	return r, true, nil
}

// Delete removes one row.
func (a *Adapter) Delete(ctx context.Context, name, id string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, err := a.rowsDB(name)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM entities WHERE store = ? AND id = ?`, name, id); err != nil {
		return errors.Storage("delete", err)
	}
	return nil
}

// GetAll returns rows in ascending id order.
func (a *Adapter) GetAll(ctx context.Context, name string, limit int) ([]store.Row, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, err := a.rowsDB(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rs, err := db.QueryContext(ctx,
		`SELECT id, searchable, payload FROM entities WHERE store = ? ORDER BY id LIMIT ?`, name, limit)
	if err != nil {
		return nil, errors.Storage("get all", err)
	}
	defer rs.Close()

	out := make([]store.Row, 0)
	for rs.Next() {
		var r store.Row
		if err := rs.Scan(&r.ID, &r.Searchable, &r.Payload); err != nil {
			return nil, errors.Storage("scan", err)
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, errors.Storage("get all", err)
	}
	return out, nil
}

// kvFor resolves the database and key a scoped record lives under.
// Callers hold a.mu.
func (a *Adapter) kvFor(scope store.Scope, key string) (*sql.DB, string, error) {
	if err := scope.Validate(); err != nil {
		return nil, "", err
	}
	if scope.IsChannel() {
		if a.channel == nil || a.current != scope.ChannelID() {
			return nil, "", errors.NotOpen(store.KV).WithDetail("scope", string(scope))
		}
		return a.channel, key, nil
	}
	return a.global, store.NamespacedKey(scope, key), nil
}

// GetKV returns a scoped record.
func (a *Adapter) GetKV(ctx context.Context, scope store.Scope, key string) ([]byte, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, k, err := a.kvFor(scope, key)
	if err != nil {
		return nil, false, err
	}
	var v []byte
	err = db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, k).Scan(&v)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Storage("get kv", err)
	}
	return v, true, nil
}

// SetKV writes a scoped record.
func (a *Adapter) SetKV(ctx context.Context, scope store.Scope, key string, value []byte) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, k, err := a.kvFor(scope, key)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		k, value); err != nil {
		return errors.Storage("set kv", err)
	}
	return nil
}

// RemoveKV deletes a scoped record.
func (a *Adapter) RemoveKV(ctx context.Context, scope store.Scope, key string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, k, err := a.kvFor(scope, key)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
		return errors.Storage("remove kv", err)
	}
	return nil
}

// ClearScope removes every record of scope.
func (a *Adapter) ClearScope(ctx context.Context, scope store.Scope) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	db, _, err := a.kvFor(scope, "")
	if err != nil {
		return err
	}
	if scope.IsChannel() {
		_, err = db.ExecContext(ctx, `DELETE FROM kv`)
	} else {
		prefix := store.NamespacePrefix(scope)
		_, err = db.ExecContext(ctx, `DELETE FROM kv WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	}
	if err != nil {
		return errors.Storage("clear scope", err)
	}
	return nil
}

// Shutdown closes the open channel and the global database.
func (a *Adapter) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.closeLocked()
	if a.global != nil {
		if cerr := a.global.Close(); cerr != nil && err == nil {
			err = errors.Storage("close", cerr)
		}
		a.global = nil
	}
	return err
}
