package server

import "time"

// ServerMetrics defines observability hooks for server operations.
// All methods must be safe for concurrent use.
type ServerMetrics interface {
	// IncrGRPCRequest increments the count for an RPC method invocation.
	// 'method' is one of the Method* constants.
	IncrGRPCRequest(method string, success bool)

	// IncrValidationError increments validation failure counters.
	// 'errorType' is one of the ErrorType* constants.
	IncrValidationError(method string, errorType string)

	// IncrClientError increments counts for errors caused by the request,
	// keyed by the google.rpc.ErrorInfo reason (e.g. "LOCK_CONFLICT").
	IncrClientError(method string, reason string)

	// IncrServerError increments counts for internal server-side errors.
	IncrServerError(method string, errorType string)

	// ObserveRequestLatency records end-to-end latency for a gRPC method call.
	ObserveRequestLatency(method string, latency time.Duration)

	// SetActiveConnections sets the number of live gRPC connections to this server.
	SetActiveConnections(count int)
}

// NoOpServerMetrics provides a no-operation implementation of ServerMetrics.
type NoOpServerMetrics struct{}

// NewNoOpServerMetrics creates a new no-operation metrics implementation.
func NewNoOpServerMetrics() ServerMetrics {
	return &NoOpServerMetrics{}
}

func (n *NoOpServerMetrics) IncrGRPCRequest(method string, success bool)                {}
func (n *NoOpServerMetrics) IncrValidationError(method string, errorType string)        {}
func (n *NoOpServerMetrics) IncrClientError(method string, reason string)               {}
func (n *NoOpServerMetrics) IncrServerError(method string, errorType string)            {}
func (n *NoOpServerMetrics) ObserveRequestLatency(method string, latency time.Duration) {}
func (n *NoOpServerMetrics) SetActiveConnections(count int)                             {}
