package main

import (
	"context"
	"time"

	"github.com/kbukum/cachesync/cache"
	"github.com/kbukum/cachesync/cachesync"
	"github.com/kbukum/cachesync/component"
	"github.com/kbukum/cachesync/config"
	"github.com/kbukum/cachesync/errors"
	"github.com/kbukum/cachesync/logger"
	"github.com/kbukum/cachesync/redis"
	"github.com/kbukum/cachesync/store"

	_ "github.com/kbukum/cachesync/store/memory"
	_ "github.com/kbukum/cachesync/store/rediskv"
	_ "github.com/kbukum/cachesync/store/sqlite"
)

const shutdownTimeout = 15 * time.Second

// entityStores maps the entity types the CLI keeps cached to their stores.
var entityStores = map[cachesync.EntityType]string{
	cachesync.EntityProduct:  store.Products,
	cachesync.EntityCustomer: store.Customers,
	cachesync.EntitySupplier: store.Suppliers,
}

// app holds the started components of one command run.
type app struct {
	cfg        *config.AppConfig
	log        *logger.Logger
	components *component.Registry
	store      *store.Component
}

func newApp(cfg *config.AppConfig, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, components: component.NewRegistry(log)}

	rc := redis.NewComponent(cfg.Redis, log)
	a.store = store.NewComponent(cfg.Store, func() any { return rc.Client() }, log)

	if cfg.Redis.Enabled {
		if err := a.components.Register(rc); err != nil {
			return nil, err
		}
	}
	if err := a.components.Register(a.store); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) start(ctx context.Context) error {
	return a.components.StartAll(ctx)
}

func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.components.StopAll(ctx); err != nil {
		a.log.Warn("shutdown incomplete", logger.ErrorFields("stop", err))
	}
}

func (a *app) adapter() store.Adapter {
	return a.store.Adapter()
}

// invalidator drops changed entities of t from storeName so the next read
// refetches them. Messages for a channel that is no longer open are ignored.
func invalidator(f *cache.Facade, t cachesync.EntityType, storeName string) cachesync.Handler {
	return cachesync.Handler{
		EntityType: t,
		InvalidateOne: func(ctx context.Context, channelID, id string) error {
			err := f.Scoped(ctx, channelID, func(ctx context.Context, ad store.Adapter) error {
				return cache.ExpireItem(ctx, ad, storeName, id)
			})
			if errors.IsNotOpen(err) {
				return nil
			}
			return err
		},
	}
}

func newLogger(cfg *config.AppConfig) *logger.Logger {
	lc := cfg.Logging
	if cfg.Debug && lc.Level == "info" {
		lc.Level = "debug"
	}
	return logger.New(&lc, cfg.Name)
}
