package lock

import "time"

// Timeouts
const (
	// DefaultLockTimeout is used when a request does not ask for a timeout.
	DefaultLockTimeout = 5 * time.Minute

	// MaxLockTimeout caps every requested timeout, including infinite ones.
	MaxLockTimeout = 24 * time.Hour

	// MinLockTimeout is the smallest configurable default timeout.
	MinLockTimeout = 1 * time.Second

	// DefaultReapInterval is how often the reaper frees expired locks.
	DefaultReapInterval = 30 * time.Second
)

// Capacity
const (
	// DefaultMaxLocks is the default maximum number of live locks.
	DefaultMaxLocks = 100000
)

// StateTokenScheme prefixes every generated state token.
const StateTokenScheme = "urn:uuid:"
