package server

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/storage"
)

// ServerConfig holds the configuration settings for a davlock server instance.
type ServerConfig struct {
	// ListenAddress is the gRPC server's bind address (e.g., "127.0.0.1:7070").
	ListenAddress string

	// BaseURL is the absolute URL of the WebDAV root. Tagged If header
	// references are resolved against it.
	BaseURL string

	// Locks is the lock store served by this instance. Required.
	Locks lock.Store

	// Tags supplies entity tags for If header evaluation. Nil means no
	// resource has a tag.
	Tags storage.EntityTagSource

	RequestTimeout  time.Duration // Max time to handle a client request
	ShutdownTimeout time.Duration // Max time allowed for graceful shutdown
	MaxRequestSize  int           // Maximum size of incoming messages (in bytes)
	MaxResponseSize int           // Maximum size of outgoing messages (in bytes)

	EnableRateLimit bool          // Whether rate limiting is enforced
	RateLimit       int           // Requests allowed per window
	RateLimitBurst  int           // Burst capacity
	RateLimitWindow time.Duration // Time window used for rate calculation

	KeepaliveTime    time.Duration // Ping interval for idle connections
	KeepaliveTimeout time.Duration // Wait for a ping ack before closing

	Logger  logger.Logger
	Metrics ServerMetrics
	Clock   clock.Clock
}

// DefaultServerConfig returns a ServerConfig pre-populated with safe defaults.
// Callers must set Locks.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress:    DefaultListenAddress,
		BaseURL:          DefaultBaseURL,
		RequestTimeout:   DefaultRequestTimeout,
		ShutdownTimeout:  DefaultShutdownTimeout,
		MaxRequestSize:   DefaultMaxRequestSize,
		MaxResponseSize:  DefaultMaxResponseSize,
		EnableRateLimit:  false,
		RateLimit:        DefaultRateLimit,
		RateLimitBurst:   DefaultRateLimitBurst,
		RateLimitWindow:  DefaultRateLimitWindow,
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		Logger:           logger.NewNoOpLogger(),
		Metrics:          NewNoOpServerMetrics(),
		Clock:            clock.New(),
	}
}

// Validate checks if the server configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.ListenAddress == "" {
		return NewServerConfigError("ListenAddress cannot be empty")
	}
	if c.Locks == nil {
		return NewServerConfigError("Locks cannot be nil")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return NewServerConfigError(fmt.Sprintf("BaseURL %q must be an absolute URL", c.BaseURL))
	}

	checkPositiveDuration := func(val time.Duration, name string) error {
		if val <= 0 {
			return NewServerConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}

	checkPositiveInt := func(val int, name string) error {
		if val <= 0 {
			return NewServerConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}

	if err := checkPositiveDuration(c.RequestTimeout, "RequestTimeout"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.ShutdownTimeout, "ShutdownTimeout"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxRequestSize, "MaxRequestSize"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxResponseSize, "MaxResponseSize"); err != nil {
		return err
	}

	if c.EnableRateLimit {
		if err := checkPositiveInt(c.RateLimit, "RateLimit"); err != nil {
			return err
		}
		if err := checkPositiveInt(c.RateLimitBurst, "RateLimitBurst"); err != nil {
			return err
		}
		if err := checkPositiveDuration(c.RateLimitWindow, "RateLimitWindow"); err != nil {
			return err
		}
	}

	if err := checkPositiveDuration(c.KeepaliveTime, "KeepaliveTime"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.KeepaliveTimeout, "KeepaliveTimeout"); err != nil {
		return err
	}

	return nil
}

// ServerConfigError represents a validation error in ServerConfig.
type ServerConfigError struct {
	Message string
}

// NewServerConfigError returns a new ServerConfigError instance.
func NewServerConfigError(msg string) *ServerConfigError {
	return &ServerConfigError{Message: msg}
}

// Error implements the error interface.
func (e *ServerConfigError) Error() string {
	return "server config error: " + e.Message
}
