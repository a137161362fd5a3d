package cache

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/store"
)

// ChannelResolver reports the channel the user is working in, or "" when
// none is active.
type ChannelResolver interface {
	ActiveChannelID(ctx context.Context) (string, error)
}

// ChannelResolverFunc adapts a function to ChannelResolver.
type ChannelResolverFunc func(ctx context.Context) (string, error)

// ActiveChannelID calls f.
func (f ChannelResolverFunc) ActiveChannelID(ctx context.Context) (string, error) {
	return f(ctx)
}

// Facade is the cache surface injected into feature services.
type Facade struct {
	adapter  store.Adapter
	resolver ChannelResolver
	log      *logger.Logger
}

// NewFacade creates a Facade over adapter.
func NewFacade(adapter store.Adapter, resolver ChannelResolver, log *logger.Logger) *Facade {
	if log == nil {
		log = logger.NewNop()
	}
	if resolver == nil {
		resolver = ChannelResolverFunc(func(context.Context) (string, error) { return "", nil })
	}
	return &Facade{adapter: adapter, resolver: resolver, log: log.WithComponent("cache")}
}

// Adapter returns the underlying adapter for Search, List and the other
// row-level primitives.
func (f *Facade) Adapter() store.Adapter {
	return f.adapter
}

// ensureOpen opens channel scopes before a key/value call.
func (f *Facade) ensureOpen(ctx context.Context, scope store.Scope) error {
	if scope.IsChannel() {
		return f.adapter.Open(ctx, scope)
	}
	return scope.Validate()
}

// GetKV decodes the record at (scope, key) into out. The bool is false when
// the record does not exist.
func (f *Facade) GetKV(ctx context.Context, scope store.Scope, key string, out any) (bool, error) {
	if err := f.ensureOpen(ctx, scope); err != nil {
		return false, err
	}
	return getKVInto(ctx, f.adapter, scope, key, out)
}

// SetKV stores value at (scope, key).
func (f *Facade) SetKV(ctx context.Context, scope store.Scope, key string, value any) error {
	if err := f.ensureOpen(ctx, scope); err != nil {
		return err
	}
	return SetKV(ctx, f.adapter, scope, key, value)
}

// RemoveKV deletes the record at (scope, key).
func (f *Facade) RemoveKV(ctx context.Context, scope store.Scope, key string) error {
	if err := f.ensureOpen(ctx, scope); err != nil {
		return err
	}
	return RemoveKV(ctx, f.adapter, scope, key)
}

// ClearAll deletes the active channel's scope and clears the global and
// session records. Every step runs; failures are joined.
func (f *Facade) ClearAll(ctx context.Context) error {
	var errs []error

	channelID, err := f.resolver.ActiveChannelID(ctx)
	switch {
	case err != nil:
		errs = append(errs, err)
	case channelID != "":
		if err := f.adapter.Open(ctx, store.ChannelScope(channelID)); err != nil {
			errs = append(errs, err)
		} else if err := f.adapter.DeleteScope(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, s := range []store.Scope{store.Global, store.Session} {
		if err := f.adapter.ClearScope(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}

	if err := stderrors.Join(errs...); err != nil {
		f.log.Warn("clear all incomplete", logger.Fields(logger.FieldChannelID, channelID, logger.FieldError, err.Error()))
		return err
	}
	f.log.Info("cache cleared", logger.Fields(logger.FieldChannelID, channelID))
	return nil
}

// Scoped runs fn only if channelID's scope is the open one. Writes that land
// after a channel switch are refused with NOT_OPEN instead of reaching the
// new channel.
func (f *Facade) Scoped(ctx context.Context, channelID string, fn func(ctx context.Context, a store.Adapter) error) error {
	scope := store.ChannelScope(channelID)
	if f.adapter.CurrentScope() != scope {
		f.log.Debug("skipping write for inactive channel", logger.Fields(logger.FieldScope, string(scope)))
		return errors.NotOpen("").WithDetail("scope", string(scope))
	}
	return fn(ctx, f.adapter)
}
