// Package resilience retries operations against optional backends with
// jittered exponential backoff, and trips a circuit breaker around calls
// that keep failing at runtime.
package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

// RetryConfig shapes the backoff between attempts. Zero fields take the
// defaults: 3 attempts starting at 100ms, doubling up to 10s with 10%
// jitter.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// ShouldRetry reports whether err is transient. Nil treats every error
	// as transient.
	ShouldRetry func(error) bool
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

// backoff is the pause after the given 1-based attempt, jittered and capped
// at MaxDelay.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	d := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	d *= 1 + cfg.JitterFraction*(2*rand.Float64()-1)
	switch {
	case d > float64(cfg.MaxDelay):
		return cfg.MaxDelay
	case d < 0:
		return cfg.InitialDelay
	}
	return time.Duration(d)
}

func (cfg RetryConfig) transient(err error) bool {
	return cfg.ShouldRetry == nil || cfg.ShouldRetry(err)
}

// Retry runs fn until it returns nil, attempts run out, the error is not
// transient, or ctx ends. The returned error wraps fn's last error.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := logger.WithComponent("retry").With("operation", name)

	for attempt := 1; ; attempt++ {
		err := fn()
		switch {
		case err == nil:
			if attempt > 1 {
				log.Info("recovered", "attempt", attempt)
			}
			return nil
		case !cfg.transient(err):
			return fmt.Errorf("%s: %w", name, err)
		case attempt >= cfg.MaxAttempts:
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}

		wait := cfg.backoff(attempt)
		log.Warn("attempt failed", "attempt", attempt, "of", cfg.MaxAttempts, "retry_in", wait, "error", err)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s abandoned: %w", name, ctx.Err())
		}
	}
}
