package client

import (
	"sync"
	"time"
)

// Metrics exposes client-side metrics for observability and monitoring.
type Metrics interface {
	// IncrSuccess records a successful operation.
	IncrSuccess(operation string)

	// IncrFailure records an operation that failed after all retries.
	IncrFailure(operation string)

	// IncrRetry records one retry of an operation.
	IncrRetry(operation string)

	// ObserveLatency records the end-to-end latency of an operation,
	// retries included.
	ObserveLatency(operation string, latency time.Duration)

	// SetConnectionCount records the number of open connections.
	SetConnectionCount(count int)

	// GetRequestCount returns the number of completed requests for the given operation.
	GetRequestCount(operation string) uint64

	// GetSuccessCount returns the number of successful requests for the given operation.
	GetSuccessCount(operation string) uint64

	// GetFailureCount returns the number of failed requests for the given operation.
	GetFailureCount(operation string) uint64

	// GetSuccessRate returns the success rate (0.0 to 1.0) for the given operation.
	GetSuccessRate(operation string) float64

	// GetRetryCount returns the total number of retries for the given operation.
	GetRetryCount(operation string) uint64

	// GetAverageLatency returns the average latency for the given operation.
	GetAverageLatency(operation string) time.Duration

	// GetMaxLatency returns the highest latency seen for the given operation.
	GetMaxLatency(operation string) time.Duration

	// GetConnectionCount returns the current number of open connections.
	GetConnectionCount() int

	// Reset clears all collected metrics.
	Reset()
}

type operationStats struct {
	successes    uint64
	failures     uint64
	retries      uint64
	latencyCount uint64
	latencyTotal time.Duration
	latencyMax   time.Duration
}

// metrics is the in-memory Metrics implementation.
type metrics struct {
	mu          sync.RWMutex
	ops         map[string]*operationStats
	connections int
}

func newMetrics() *metrics {
	return &metrics{ops: make(map[string]*operationStats)}
}

// statsLocked returns the stats of op, creating them. Callers hold m.mu.
func (m *metrics) statsLocked(op string) *operationStats {
	s, ok := m.ops[op]
	if !ok {
		s = &operationStats{}
		m.ops[op] = s
	}
	return s
}

func (m *metrics) snapshot(op string) operationStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.ops[op]; ok {
		return *s
	}
	return operationStats{}
}

func (m *metrics) IncrSuccess(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(operation).successes++
}

func (m *metrics) IncrFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(operation).failures++
}

func (m *metrics) IncrRetry(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsLocked(operation).retries++
}

func (m *metrics) ObserveLatency(operation string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.statsLocked(operation)
	s.latencyCount++
	s.latencyTotal += latency
	s.latencyMax = max(s.latencyMax, latency)
}

func (m *metrics) SetConnectionCount(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections = count
}

func (m *metrics) GetRequestCount(operation string) uint64 {
	s := m.snapshot(operation)
	return s.successes + s.failures
}

func (m *metrics) GetSuccessCount(operation string) uint64 {
	return m.snapshot(operation).successes
}

func (m *metrics) GetFailureCount(operation string) uint64 {
	return m.snapshot(operation).failures
}

func (m *metrics) GetSuccessRate(operation string) float64 {
	s := m.snapshot(operation)
	total := s.successes + s.failures
	if total == 0 {
		return 0
	}
	return float64(s.successes) / float64(total)
}

func (m *metrics) GetRetryCount(operation string) uint64 {
	return m.snapshot(operation).retries
}

func (m *metrics) GetAverageLatency(operation string) time.Duration {
	s := m.snapshot(operation)
	if s.latencyCount == 0 {
		return 0
	}
	return s.latencyTotal / time.Duration(s.latencyCount)
}

func (m *metrics) GetMaxLatency(operation string) time.Duration {
	return m.snapshot(operation).latencyMax
}

func (m *metrics) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections
}

func (m *metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = make(map[string]*operationStats)
	m.connections = 0
}

// noOpMetrics discards everything.
type noOpMetrics struct{}

func (noOpMetrics) IncrSuccess(string)                     {}
func (noOpMetrics) IncrFailure(string)                     {}
func (noOpMetrics) IncrRetry(string)                       {}
func (noOpMetrics) ObserveLatency(string, time.Duration)   {}
func (noOpMetrics) SetConnectionCount(int)                 {}
func (noOpMetrics) GetRequestCount(string) uint64          { return 0 }
func (noOpMetrics) GetSuccessCount(string) uint64          { return 0 }
func (noOpMetrics) GetFailureCount(string) uint64          { return 0 }
func (noOpMetrics) GetSuccessRate(string) float64          { return 0 }
func (noOpMetrics) GetRetryCount(string) uint64            { return 0 }
func (noOpMetrics) GetAverageLatency(string) time.Duration { return 0 }
func (noOpMetrics) GetMaxLatency(string) time.Duration     { return 0 }
func (noOpMetrics) GetConnectionCount() int                { return 0 }
func (noOpMetrics) Reset()                                 {}
