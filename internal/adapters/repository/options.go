package repository

import (
	"time"

	"github.com/okian/mingle/pkg/logger"
)

// BreakerOption applies a configuration option to the BreakerBackend.
type BreakerOption func(*breakerConfig)

type breakerConfig struct {
	name        string
	maxFailures uint32
	openTimeout time.Duration
	log         logger.Logger
}

// WithBreakerName sets the name reported in logs and metrics.
func WithBreakerName(name string) BreakerOption {
	return func(c *breakerConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithMaxFailures sets how many consecutive failures open the breaker.
func WithMaxFailures(n int) BreakerOption {
	return func(c *breakerConfig) {
		if n > 0 {
			c.maxFailures = uint32(n) //nolint:gosec // bounded by config validation
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		if d > 0 {
			c.openTimeout = d
		}
	}
}

// WithBreakerLogger sets the logger used for state changes.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(c *breakerConfig) {
		c.log = l
	}
}
