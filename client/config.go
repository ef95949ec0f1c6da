package client

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

const (
	// Default gRPC dial timeout.
	defaultDialTimeout = 5 * time.Second

	// Default timeout for individual gRPC requests.
	defaultRequestTimeout = 30 * time.Second

	// Default interval for sending keepalive pings.
	defaultKeepAliveTime = 30 * time.Second

	// Default timeout for waiting on keepalive ack.
	defaultKeepAliveTimeout = 5 * time.Second

	// Whether to allow keepalives when no streams are active.
	defaultPermitWithoutStream = true

	// Whether client-side metrics are enabled by default.
	defaultEnableMetrics = true

	// Default maximum gRPC message size (16MB).
	defaultMaxMessageSize = 16 * 1024 * 1024

	// Default number of retry attempts for failed operations.
	defaultMaxRetries = 3

	// Default initial backoff duration between retries.
	defaultInitialBackoff = 100 * time.Millisecond

	// Default maximum backoff duration.
	defaultMaxBackoff = 5 * time.Second

	// Default multiplier for exponential backoff.
	defaultBackoffMultiplier = 2.0

	// Default jitter factor to randomize backoff durations.
	defaultJitterFactor = 0.1
)

// Config holds configuration options for davlock clients.
type Config struct {
	// Endpoints lists davlock server addresses. The client sends each call to
	// the endpoint that last answered and falls back to the others in order.
	// At least one endpoint is required.
	Endpoints []string

	// DialTimeout bounds how long a new connection may take to become ready.
	// Zero skips the wait. Defaults to 5 seconds.
	DialTimeout time.Duration

	// RequestTimeout is the default timeout for individual gRPC requests.
	// A context with a shorter deadline wins. Defaults to 30 seconds.
	RequestTimeout time.Duration

	// KeepAlive controls gRPC keepalive pings.
	KeepAlive KeepAliveConfig

	// RetryPolicy defines the backoff strategy and which failures are retried.
	// Lock conflicts and other client errors are never retried.
	RetryPolicy RetryPolicy

	// EnableMetrics toggles client-side metrics. Defaults to true.
	EnableMetrics bool

	// MaxMessageSize is the largest gRPC message (in bytes) the client sends
	// or accepts. Defaults to 16MB.
	MaxMessageSize int

	// DialOptions are appended to the options the client builds itself.
	DialOptions []grpc.DialOption
}

// KeepAliveConfig defines gRPC keepalive settings for the client.
type KeepAliveConfig struct {
	// Time is the interval at which the client pings an idle connection.
	Time time.Duration

	// Timeout is how long the client waits for a ping ack before closing the
	// connection.
	Timeout time.Duration

	// PermitWithoutStream allows pings when no calls are in flight.
	PermitWithoutStream bool
}

// RetryPolicy defines how the client retries failed operations.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration

	// BackoffMultiplier determines how backoff grows between retries.
	BackoffMultiplier float64

	// JitterFactor adds randomness to backoff timing (0.0 to 1.0).
	JitterFactor float64

	// RetryableCodes lists the gRPC codes that trigger a retry.
	// ResourceExhausted is only retried when the server reports rate limiting.
	RetryableCodes []codes.Code
}

// DefaultClientConfig returns a Config with sensible default values.
func DefaultClientConfig() Config {
	return Config{
		DialTimeout:    defaultDialTimeout,
		RequestTimeout: defaultRequestTimeout,
		KeepAlive: KeepAliveConfig{
			Time:                defaultKeepAliveTime,
			Timeout:             defaultKeepAliveTimeout,
			PermitWithoutStream: defaultPermitWithoutStream,
		},
		RetryPolicy:    DefaultRetryPolicy(),
		EnableMetrics:  defaultEnableMetrics,
		MaxMessageSize: defaultMaxMessageSize,
	}
}

// DefaultRetryPolicy retries transport failures and rate limiting.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        defaultMaxRetries,
		InitialBackoff:    defaultInitialBackoff,
		MaxBackoff:        defaultMaxBackoff,
		BackoffMultiplier: defaultBackoffMultiplier,
		JitterFactor:      defaultJitterFactor,
		RetryableCodes: []codes.Code{
			codes.Unavailable,
			codes.ResourceExhausted,
		},
	}
}
