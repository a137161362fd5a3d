package config

import (
	"github.com/kbukum/cachesync/cachesync"
	"github.com/kbukum/cachesync/httpclient"
	"github.com/kbukum/cachesync/redis"
	"github.com/kbukum/cachesync/store"
	"github.com/kbukum/cachesync/validation"
)

// DefaultServiceName names the process in logs and prefixes its
// environment variables.
const DefaultServiceName = "cachesync"

// AppConfig is the complete configuration of the cachesync process.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// API addresses the backend whose change feed is followed.
	API httpclient.Config `yaml:"api" mapstructure:"api"`

	// Store selects the persistence backend of the cache.
	Store store.Config `yaml:"store" mapstructure:"store"`

	// Redis is used when Store.Provider is "redis".
	Redis redis.Config `yaml:"redis" mapstructure:"redis"`

	// Sync tunes the change feed engine.
	Sync cachesync.Config `yaml:"sync" mapstructure:"sync"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Store.ApplyDefaults()
	if c.Store.Provider == store.ProviderRedis {
		c.Redis.Enabled = true
	}
	c.Redis.ApplyDefaults()
	c.Sync.ApplyDefaults()
}

// Validate checks every section and reports all failures together.
func (c *AppConfig) Validate() error {
	return validation.New().
		Merge("", validation.Validate(c)).
		Merge("", c.ServiceConfig.Validate()).
		Required("api.base_url", c.API.BaseURL).
		Merge("api", c.API.Validate()).
		Merge("", c.Store.Validate()).
		Merge("", c.Redis.Validate()).
		Merge("", c.Sync.Validate()).
		Validate()
}

// Load reads the configuration of serviceName, applies defaults and
// validates it.
func Load(serviceName string, opts ...LoaderOption) (*AppConfig, error) {
	var cfg AppConfig
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
