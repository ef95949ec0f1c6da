package client

import (
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

// LockClientBuilder provides a fluent API for constructing davlock clients.
//
// Example:
//
//	c, err := client.NewLockClientBuilder([]string{"localhost:7070"}).
//	    WithTimeouts(2*time.Second, 5*time.Second).
//	    Build()
type LockClientBuilder struct {
	config      Config
	hasEndpoint bool
}

// NewLockClientBuilder returns a builder initialized with the given endpoints.
// At least one endpoint is required to build a client.
func NewLockClientBuilder(endpoints []string) *LockClientBuilder {
	b := &LockClientBuilder{
		config: DefaultClientConfig(),
	}
	if len(endpoints) > 0 {
		b.config.Endpoints = endpoints
		b.hasEndpoint = true
	}
	return b
}

// WithEndpoints sets the server endpoints, replacing any set before.
func (b *LockClientBuilder) WithEndpoints(endpoints []string) *LockClientBuilder {
	b.config.Endpoints = endpoints
	b.hasEndpoint = len(endpoints) > 0
	return b
}

// WithTimeouts sets the dial and request timeouts. Non-positive values keep
// the current setting.
func (b *LockClientBuilder) WithTimeouts(dialTimeout, requestTimeout time.Duration) *LockClientBuilder {
	if dialTimeout > 0 {
		b.config.DialTimeout = dialTimeout
	}
	if requestTimeout > 0 {
		b.config.RequestTimeout = requestTimeout
	}
	return b
}

// WithKeepAlive sets gRPC keepalive parameters.
func (b *LockClientBuilder) WithKeepAlive(interval, timeout time.Duration, permitWithoutStream bool) *LockClientBuilder {
	b.config.KeepAlive = KeepAliveConfig{
		Time:                interval,
		Timeout:             timeout,
		PermitWithoutStream: permitWithoutStream,
	}
	return b
}

// WithRetryPolicy sets a custom retry policy.
func (b *LockClientBuilder) WithRetryPolicy(policy RetryPolicy) *LockClientBuilder {
	b.config.RetryPolicy = policy
	return b
}

// WithRetryOptions updates the retry policy parameters. Out-of-range values
// keep the current setting.
func (b *LockClientBuilder) WithRetryOptions(maxRetries int, initialBackoff, maxBackoff time.Duration, multiplier float64) *LockClientBuilder {
	if maxRetries >= 0 {
		b.config.RetryPolicy.MaxRetries = maxRetries
	}
	if initialBackoff > 0 {
		b.config.RetryPolicy.InitialBackoff = initialBackoff
	}
	if maxBackoff > 0 {
		b.config.RetryPolicy.MaxBackoff = maxBackoff
	}
	if multiplier > 0 {
		b.config.RetryPolicy.BackoffMultiplier = multiplier
	}
	return b
}

// WithRetryableCodes sets the status codes that trigger retries.
// No codes disables retries.
func (b *LockClientBuilder) WithRetryableCodes(retryable ...codes.Code) *LockClientBuilder {
	b.config.RetryPolicy.RetryableCodes = append([]codes.Code{}, retryable...)
	return b
}

// WithMetrics enables or disables metrics collection.
func (b *LockClientBuilder) WithMetrics(enabled bool) *LockClientBuilder {
	b.config.EnableMetrics = enabled
	return b
}

// WithMaxMessageSize sets the max gRPC message size (bytes).
func (b *LockClientBuilder) WithMaxMessageSize(size int) *LockClientBuilder {
	if size > 0 {
		b.config.MaxMessageSize = size
	}
	return b
}

// WithDialOptions appends extra gRPC dial options.
func (b *LockClientBuilder) WithDialOptions(opts ...grpc.DialOption) *LockClientBuilder {
	b.config.DialOptions = append(b.config.DialOptions, opts...)
	return b
}

// validate checks if the builder has valid configuration.
func (b *LockClientBuilder) validate() error {
	if !b.hasEndpoint || len(b.config.Endpoints) == 0 {
		return errors.New("builder: at least one endpoint must be set")
	}
	return nil
}

// Build returns a configured LockClient.
func (b *LockClientBuilder) Build() (LockClient, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	return NewLockClient(b.config)
}
