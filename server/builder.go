package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/storage"
)

// ServerBuilder helps construct a DavLockServer with validated configuration
// and sane defaults.
type ServerBuilder struct {
	config   ServerConfig
	listener net.Listener
}

// NewServerBuilder returns a ServerBuilder preloaded with default configuration values.
func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{config: DefaultServerConfig()}
}

// WithListenAddress sets the gRPC server's listening address.
func (b *ServerBuilder) WithListenAddress(address string) *ServerBuilder {
	b.config.ListenAddress = address
	return b
}

// WithListener makes the server serve on l instead of listening on
// ListenAddress.
func (b *ServerBuilder) WithListener(l net.Listener) *ServerBuilder {
	b.listener = l
	return b
}

// WithBaseURL sets the absolute URL of the WebDAV root.
func (b *ServerBuilder) WithBaseURL(baseURL string) *ServerBuilder {
	b.config.BaseURL = baseURL
	return b
}

// WithLockStore sets the lock store to serve. This must be set explicitly.
func (b *ServerBuilder) WithLockStore(store lock.Store) *ServerBuilder {
	b.config.Locks = store
	return b
}

// WithEntityTagSource sets the entity-tag source used by EvaluateIf.
func (b *ServerBuilder) WithEntityTagSource(tags storage.EntityTagSource) *ServerBuilder {
	b.config.Tags = tags
	return b
}

// WithTimeouts sets timeouts for request handling and shutdown.
// Values <= 0 leave the defaults unchanged.
func (b *ServerBuilder) WithTimeouts(requestTimeout, shutdownTimeout time.Duration) *ServerBuilder {
	if requestTimeout > 0 {
		b.config.RequestTimeout = requestTimeout
	}
	if shutdownTimeout > 0 {
		b.config.ShutdownTimeout = shutdownTimeout
	}
	return b
}

// WithLimits sets message size limits.
// Values <= 0 leave the defaults unchanged.
func (b *ServerBuilder) WithLimits(maxRequestSize, maxResponseSize int) *ServerBuilder {
	if maxRequestSize > 0 {
		b.config.MaxRequestSize = maxRequestSize
	}
	if maxResponseSize > 0 {
		b.config.MaxResponseSize = maxResponseSize
	}
	return b
}

// WithRateLimit configures rate limiting.
// Values <= 0 use the default if rate limiting is enabled.
func (b *ServerBuilder) WithRateLimit(enabled bool, rateLimit, burst int, window time.Duration) *ServerBuilder {
	b.config.EnableRateLimit = enabled
	if enabled {
		if rateLimit > 0 {
			b.config.RateLimit = rateLimit
		}
		if burst > 0 {
			b.config.RateLimitBurst = burst
		}
		if window > 0 {
			b.config.RateLimitWindow = window
		}
	}
	return b
}

// WithKeepalive sets the keepalive ping interval and ack timeout.
// Values <= 0 leave the defaults unchanged.
func (b *ServerBuilder) WithKeepalive(interval, timeout time.Duration) *ServerBuilder {
	if interval > 0 {
		b.config.KeepaliveTime = interval
	}
	if timeout > 0 {
		b.config.KeepaliveTimeout = timeout
	}
	return b
}

// WithLogger sets the server logger.
// If nil, a no-op logger is used.
func (b *ServerBuilder) WithLogger(logger logger.Logger) *ServerBuilder {
	b.config.Logger = logger
	return b
}

// WithMetrics sets the metrics collector.
// If nil, a no-op implementation is used.
func (b *ServerBuilder) WithMetrics(metrics ServerMetrics) *ServerBuilder {
	b.config.Metrics = metrics
	return b
}

// WithClock sets the clock used for latency and shutdown timing.
func (b *ServerBuilder) WithClock(clk clock.Clock) *ServerBuilder {
	b.config.Clock = clk
	return b
}

// Build constructs a DavLockServer using the current builder state.
// Returns an error if required fields are missing or configuration is invalid.
func (b *ServerBuilder) Build() (DavLockServer, error) {
	if b.config.Locks == nil {
		return nil, errors.New("server builder: lock store must be set using WithLockStore")
	}
	s, err := newDavLockServer(b.config, b.listener)
	if err != nil {
		return nil, fmt.Errorf("server builder: configuration validation failed: %w", err)
	}
	return s, nil
}
