package lock

import (
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/logger"
)

// StoreOption applies a configuration setting to a Store during initialization.
type StoreOption func(*StoreConfig)

// StoreConfig holds configuration parameters for a Store instance.
type StoreConfig struct {
	// DefaultTimeout is used when a lock request carries no timeout.
	DefaultTimeout time.Duration

	// MaxTimeout caps requested timeouts. Requests above it, including
	// infinite ones, are granted MaxTimeout.
	MaxTimeout time.Duration

	// MaxLocks limits the number of live locks. Zero means unlimited.
	MaxLocks int

	// ReapInterval is how often a background reaper frees expired locks.
	// Zero disables the reaper; expired locks are then only dropped by
	// mutations.
	ReapInterval time.Duration

	Clock          clock.Clock
	Logger         logger.Logger
	Metrics        Metrics
	TokenGenerator TokenGenerator
}

// DefaultStoreConfig returns a StoreConfig with sensible defaults based on
// the predefined constants.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DefaultTimeout: DefaultLockTimeout,
		MaxTimeout:     MaxLockTimeout,
		MaxLocks:       DefaultMaxLocks,
		ReapInterval:   0,
	}
}

// WithDefaultTimeout sets the timeout for requests that don't specify one.
// Values below MinLockTimeout are ignored.
func WithDefaultTimeout(timeout time.Duration) StoreOption {
	return func(cfg *StoreConfig) {
		if timeout >= MinLockTimeout {
			cfg.DefaultTimeout = timeout
		}
	}
}

// WithMaxTimeout sets the cap applied to requested timeouts.
// Values below MinLockTimeout are ignored.
func WithMaxTimeout(timeout time.Duration) StoreOption {
	return func(cfg *StoreConfig) {
		if timeout >= MinLockTimeout {
			cfg.MaxTimeout = timeout
		}
	}
}

// WithMaxLocks sets the maximum number of live locks. Zero removes the limit.
func WithMaxLocks(max int) StoreOption {
	return func(cfg *StoreConfig) {
		if max >= 0 {
			cfg.MaxLocks = max
		}
	}
}

// WithReapInterval enables the background reaper. Zero disables it.
func WithReapInterval(interval time.Duration) StoreOption {
	return func(cfg *StoreConfig) {
		if interval >= 0 {
			cfg.ReapInterval = interval
		}
	}
}

// WithClock sets the clock used for issue and expiration times.
func WithClock(c clock.Clock) StoreOption {
	return func(cfg *StoreConfig) {
		if c != nil {
			cfg.Clock = c
		}
	}
}

// WithLogger sets the logger for internal events.
func WithLogger(l logger.Logger) StoreOption {
	return func(cfg *StoreConfig) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) StoreOption {
	return func(cfg *StoreConfig) {
		if m != nil {
			cfg.Metrics = m
		}
	}
}

// WithTokenGenerator replaces the default UUID state token generator.
func WithTokenGenerator(g TokenGenerator) StoreOption {
	return func(cfg *StoreConfig) {
		if g != nil {
			cfg.TokenGenerator = g
		}
	}
}
