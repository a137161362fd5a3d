package store

import (
	"github.com/kbukum/cachesync/validation"
)

// Provider constants for supported storage backends.
const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
	ProviderRedis  = "redis"
)

// Default configuration values.
const (
	DefaultProvider  = ProviderMemory
	DefaultKeyPrefix = "cachesync"
)

// Config holds storage configuration.
type Config struct {
	// Provider selects the storage backend: "memory", "sqlite" or "redis".
	Provider string `mapstructure:"provider" json:"provider" validate:"omitempty,oneof=memory sqlite redis"`

	// Dir is the directory holding the sqlite database files.
	Dir string `mapstructure:"dir" json:"dir"`

	// KeyPrefix prefixes every redis key written by the redis provider.
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	v := validation.New()
	v.OneOf("store.provider", c.Provider, []string{ProviderMemory, ProviderSQLite, ProviderRedis})
	if c.Provider == ProviderSQLite {
		v.Required("store.dir", c.Dir)
	}
	if c.Provider == ProviderRedis {
		v.Required("store.key_prefix", c.KeyPrefix)
	}
	return v.Validate()
}
