package server

import "time"

const (
	// --- Default server configuration values ---

	// DefaultListenAddress is the default address for the gRPC endpoint.
	DefaultListenAddress = "127.0.0.1:7070"

	// DefaultBaseURL is the default absolute URL of the WebDAV root that If
	// header references are resolved against.
	DefaultBaseURL = "http://localhost/"

	// DefaultRequestTimeout is the default timeout for processing individual client requests.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMaxRequestSize is the default maximum size for incoming gRPC messages (4MB).
	DefaultMaxRequestSize = 4 * 1024 * 1024

	// DefaultMaxResponseSize is the default maximum size for outgoing gRPC messages (16MB).
	// Lock listings can be much larger than any request.
	DefaultMaxResponseSize = 16 * 1024 * 1024

	// --- Rate limiting defaults ---

	// DefaultRateLimit is the default number of requests allowed per window.
	DefaultRateLimit = 100

	// DefaultRateLimitBurst is the default burst size for rate limiting.
	DefaultRateLimitBurst = 200

	// DefaultRateLimitWindow is the default time window for rate limiting calculations.
	DefaultRateLimitWindow = time.Second

	// DefaultRateLimitIdleTimeout is how long a client's bucket is kept after
	// its last request.
	DefaultRateLimitIdleTimeout = 5 * time.Minute

	// --- Keepalive defaults ---

	// DefaultKeepaliveTime is the interval after which the server pings an idle connection.
	DefaultKeepaliveTime = 30 * time.Second

	// DefaultKeepaliveTimeout is how long the server waits for a ping ack.
	DefaultKeepaliveTimeout = 5 * time.Second

	// --- Validation limits for client-provided data ---

	// MaxPathLength is the maximum allowed length for resource paths and hrefs.
	MaxPathLength = 4096

	// MaxOwnerLength is the maximum allowed length for the opaque owner payload.
	MaxOwnerLength = 64 * 1024

	// MaxTokenLength is the maximum allowed length for a Lock-Token value.
	MaxTokenLength = 1024

	// MaxIfHeaderLength is the maximum allowed length for an If header value.
	MaxIfHeaderLength = 64 * 1024
)

// ServerOperationalState defines the possible operational states of the server.
type ServerOperationalState string

const (
	// ServerStateNew indicates the server has been built but not started.
	ServerStateNew ServerOperationalState = "new"
	// ServerStateRunning indicates the server is running and accepting requests.
	ServerStateRunning ServerOperationalState = "running"
	// ServerStateStopped indicates the server has been stopped.
	ServerStateStopped ServerOperationalState = "stopped"
)

// Method names for metrics collection and logging.
const (
	MethodCreate     = "Create"
	MethodRefresh    = "Refresh"
	MethodRelease    = "Release"
	MethodFindActive = "FindActive"
	MethodFindAll    = "FindAll"
	MethodEvaluateIf = "EvaluateIf"
)

// Error types for metrics and logging (used with ServerMetrics.IncrValidationError/IncrServerError)
const (
	ErrorTypeMissingField  = "missing_field"
	ErrorTypeInvalidFormat = "invalid_format"
	ErrorTypeTooLong       = "too_long"
	ErrorTypeInternalError = "internal_error"
	ErrorTypeTimeout       = "timeout"
	ErrorTypeRateLimit     = "rate_limit_exceeded"
)
