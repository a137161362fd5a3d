package resilience

import (
	"testing"
	"time"
)

func TestBackoff_DoublesUpToCap(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	b.Next()
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("expected floor after reset, got %v", got)
	}
}

func TestBackoff_Peek(t *testing.T) {
	b := NewBackoff(DefaultBackoffConfig())
	if b.Peek() != time.Second {
		t.Errorf("expected 1s, got %v", b.Peek())
	}
	b.Next()
	if b.Peek() != 2*time.Second {
		t.Errorf("expected 2s, got %v", b.Peek())
	}
}

func TestBackoffConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   BackoffConfig
		want BackoffConfig
	}{
		{"zero", BackoffConfig{}, DefaultBackoffConfig()},
		{"cap below floor", BackoffConfig{InitialBackoff: 5 * time.Second, MaxBackoff: time.Second, BackoffFactor: 2},
			BackoffConfig{InitialBackoff: 5 * time.Second, MaxBackoff: 5 * time.Second, BackoffFactor: 2}},
		{"custom kept", BackoffConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 3},
			BackoffConfig{InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.in
			cfg.ApplyDefaults()
			if cfg != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, cfg)
			}
		})
	}
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	b := NewBackoff(BackoffConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2, Jitter: 0.5})
	for i := 0; i < 20; i++ {
		d := b.Next()
		if d <= 0 || d > time.Second {
			t.Fatalf("delay %v out of range", d)
		}
	}
}
