package store

import (
	"context"
	"fmt"

	"github.com/kbukum/cachesync/component"
	"github.com/kbukum/cachesync/logger"
)

// Component wraps an Adapter and implements component.Component.
type Component struct {
	adapter     Adapter
	cfg         Config
	providerCfg func() any
	log         *logger.Logger
}

// NewComponent creates a store component. providerCfg is resolved at Start
// so it may depend on components started earlier, such as the redis client.
func NewComponent(cfg Config, providerCfg func() any, log *logger.Logger) *Component {
	if providerCfg == nil {
		providerCfg = func() any { return nil }
	}
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		providerCfg: providerCfg,
		log:         log.WithComponent("store"),
	}
}

// Adapter returns the underlying Adapter, or nil if not started.
func (c *Component) Adapter() Adapter {
	return c.adapter
}

var _ component.Component = (*Component)(nil)

// Name returns the component name.
func (c *Component) Name() string { return "store" }

// Start creates the storage backend.
func (c *Component) Start(_ context.Context) error {
	a, err := New(c.cfg, c.providerCfg(), c.log)
	if err != nil {
		return fmt.Errorf("store start: %w", err)
	}
	c.adapter = a
	return nil
}

// Stop shuts the backend down.
func (c *Component) Stop(ctx context.Context) error {
	if c.adapter == nil {
		return nil
	}
	err := c.adapter.Shutdown(ctx)
	c.adapter = nil
	return err
}

// Health reports whether the adapter is running and which scope is open.
func (c *Component) Health(_ context.Context) component.Health {
	if c.adapter == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "store not initialized",
		}
	}
	msg := "no channel scope open"
	if s := c.adapter.CurrentScope(); s != "" {
		msg = "open scope " + string(s)
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: msg}
}

// Describe returns summary info for startup logging.
func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	switch c.cfg.Provider {
	case ProviderSQLite:
		details += " dir=" + c.cfg.Dir
	case ProviderRedis:
		details += " prefix=" + c.cfg.KeyPrefix
	}
	return component.Description{Name: "Store", Type: "storage", Details: details}
}
