package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/cachesync/logger"
)

// Factory creates an Adapter from core config and provider-specific
// configuration. Each provider type-asserts providerCfg to what it needs.
type Factory func(cfg Config, providerCfg any, log *logger.Logger) (Adapter, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a backend factory for the given provider name.
// Backend packages call this from an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an Adapter for cfg.Provider. Ensure the provider package has
// been imported (e.g. _ "github.com/kbukum/cachesync/store/memory") so its
// factory is registered.
func New(cfg Config, providerCfg any, log *logger.Logger) (Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	l := log.WithComponent("store")

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unsupported provider %q (not registered)", cfg.Provider)
	}

	l.Info("initializing store", logger.Fields("provider", cfg.Provider))
	return f(cfg, providerCfg, l)
}
