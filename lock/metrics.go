package lock

import "time"

// Metrics records store activity. All methods must be safe for concurrent use.
type Metrics interface {
	// IncrCreateRequest counts lock creations; success is false on any error.
	IncrCreateRequest(success bool)

	// IncrRefreshRequest counts lock refreshes.
	IncrRefreshRequest(success bool)

	// IncrReleaseRequest counts lock releases.
	IncrReleaseRequest(success bool)

	// IncrConflict counts creations rejected by a conflicting lock.
	IncrConflict()

	// IncrExpiredLocks counts locks removed after expiring.
	IncrExpiredLocks(count int)

	// ObserveLockHoldDuration records how long a lock lived.
	// byRelease is true if the lock was explicitly released.
	ObserveLockHoldDuration(holdTime time.Duration, byRelease bool)

	// SetActiveLocks sets the number of locks currently indexed.
	SetActiveLocks(count int)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a Metrics that records nothing.
func NewNoOpMetrics() Metrics {
	return &NoOpMetrics{}
}

func (m *NoOpMetrics) IncrCreateRequest(bool)                      {}
func (m *NoOpMetrics) IncrRefreshRequest(bool)                     {}
func (m *NoOpMetrics) IncrReleaseRequest(bool)                     {}
func (m *NoOpMetrics) IncrConflict()                               {}
func (m *NoOpMetrics) IncrExpiredLocks(int)                        {}
func (m *NoOpMetrics) ObserveLockHoldDuration(time.Duration, bool) {}
func (m *NoOpMetrics) SetActiveLocks(int)                          {}
