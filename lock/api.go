package lock

import (
	"context"
	"time"

	"github.com/jathurchan/davlock/types"
)

// Store grants, refreshes, releases and finds WebDAV locks.
//
// Notes:
//   - All methods are safe for concurrent use and linearizable.
//   - Expired locks are never returned and never cause conflicts, whether or
//     not they have been physically removed yet.
//   - Returned locks are copies; mutating them does not affect the store.
//   - A context cancelled before an operation enters the store leaves the
//     store unchanged.
type Store interface {
	// Create grants a new lock for req.
	//
	// Returns:
	//   - The granted lock, with a fresh state token.
	//   - *ConflictError (matching ErrLockConflict) if a live lock overlaps
	//     incompatibly.
	//   - ErrInvalidRequest, ErrInvalidTimeout, ErrTooManyLocks, or a context error.
	Create(ctx context.Context, req types.LockRequest) (types.ActiveLock, error)

	// Refresh extends the lock identified by token. A zero timeout reuses
	// the lock's current timeout. An empty owner skips the owner check.
	//
	// Returns:
	//   - The refreshed lock.
	//   - ErrLockNotFound, ErrLockOwnerMismatch, ErrInvalidTimeout, or a context error.
	Refresh(ctx context.Context, token types.StateToken, owner types.Owner, timeout time.Duration) (types.ActiveLock, error)

	// Release removes the lock identified by token.
	//
	// Returns:
	//   - ErrLockNotFound, ErrLockOwnerMismatch, or a context error.
	Release(ctx context.Context, token types.StateToken, owner types.Owner) error

	// FindActive returns the live locks covering path: locks on path itself
	// and recursive locks on its ancestors. A non-empty owner restricts the
	// result to that owner's locks.
	FindActive(ctx context.Context, path string, owner types.Owner) ([]types.ActiveLock, error)

	// FindAll returns every live lock, optionally restricted to owner.
	FindAll(ctx context.Context, owner types.Owner) ([]types.ActiveLock, error)

	// Find returns every live lock accepted by filter.
	Find(ctx context.Context, filter LockFilter) ([]types.ActiveLock, error)

	// Close stops background routines. The store remains usable.
	Close() error
}
