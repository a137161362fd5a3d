package cachesync

import (
	"time"

	"github.com/kbukum/cachesync/resilience"
	"github.com/kbukum/cachesync/validation"
)

// Default configuration values.
const (
	DefaultStreamPath    = "/cache-sync/stream"
	DefaultTokenParam    = "vendure-token"
	DefaultCatchUpWindow = 100 * time.Millisecond
	DefaultReceiveDelay  = 300 * time.Millisecond
)

// Config configures the sync engine and its HTTP transport.
type Config struct {
	// StreamPath is the change feed path below the API base URL.
	StreamPath string `yaml:"stream_path" mapstructure:"stream_path"`

	// TokenParam is the query parameter carrying the channel token.
	TokenParam string `yaml:"token_param" mapstructure:"token_param"`

	// CatchUpWindow is how long after connecting messages are buffered and
	// deduplicated before the engine goes live.
	CatchUpWindow time.Duration `yaml:"catch_up_window" mapstructure:"catch_up_window"`

	// ReceiveDelay holds each catch-up message back before buffering it.
	ReceiveDelay time.Duration `yaml:"receive_delay" mapstructure:"receive_delay"`

	// Backoff spaces reconnect attempts after transient failures.
	Backoff resilience.BackoffConfig `yaml:"backoff" mapstructure:"backoff"`
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		StreamPath:    DefaultStreamPath,
		TokenParam:    DefaultTokenParam,
		CatchUpWindow: DefaultCatchUpWindow,
		ReceiveDelay:  DefaultReceiveDelay,
		Backoff:       resilience.DefaultBackoffConfig(),
	}
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.StreamPath == "" {
		c.StreamPath = DefaultStreamPath
	}
	if c.TokenParam == "" {
		c.TokenParam = DefaultTokenParam
	}
	if c.CatchUpWindow <= 0 {
		c.CatchUpWindow = DefaultCatchUpWindow
	}
	if c.ReceiveDelay <= 0 {
		c.ReceiveDelay = DefaultReceiveDelay
	}
	c.Backoff.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.New().
		Required("sync.stream_path", c.StreamPath).
		Required("sync.token_param", c.TokenParam).
		Custom(c.Backoff.MaxBackoff >= c.Backoff.InitialBackoff, "sync.backoff.max_backoff", "must not be below initial_backoff").
		Validate()
}
