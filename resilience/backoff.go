package resilience

import (
	"math/rand"
	"sync"
	"time"
)

// BackoffConfig configures exponential backoff.
type BackoffConfig struct {
	// InitialBackoff is the first delay and the value Reset returns to.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier applied after each delay.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter adds randomness to each delay (0.0 to 1.0). Zero keeps delays exact.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
}

// DefaultBackoffConfig returns 1s doubling to a 30s cap, without jitter.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// ApplyDefaults fills zero fields from DefaultBackoffConfig.
func (c *BackoffConfig) ApplyDefaults() {
	d := DefaultBackoffConfig()
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
}

// Backoff hands out successive delays. It is safe for concurrent use.
type Backoff struct {
	cfg     BackoffConfig
	mu      sync.Mutex
	current time.Duration
}

// NewBackoff creates a Backoff positioned at its floor.
func NewBackoff(cfg BackoffConfig) *Backoff {
	cfg.ApplyDefaults()
	return &Backoff{cfg: cfg, current: cfg.InitialBackoff}
}

// Next returns the current delay and advances to the next one.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current
	next := time.Duration(float64(b.current) * b.cfg.BackoffFactor)
	if next > b.cfg.MaxBackoff {
		next = b.cfg.MaxBackoff
	}
	b.current = next
	return applyJitter(delay, b.cfg)
}

// Peek returns the delay Next would hand out, without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Reset moves the backoff back to its floor.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.cfg.InitialBackoff
}

func applyJitter(d time.Duration, cfg BackoffConfig) time.Duration {
	if cfg.Jitter <= 0 {
		return d
	}
	jitterRange := float64(d) * cfg.Jitter
	out := float64(d) + (rand.Float64()*2-1)*jitterRange
	if out > float64(cfg.MaxBackoff) {
		out = float64(cfg.MaxBackoff)
	}
	if out <= 0 {
		return cfg.InitialBackoff
	}
	return time.Duration(out)
}
