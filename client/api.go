package client

import (
	"context"

	"github.com/jathurchan/davlock/types"
)

// LockClient is a client of the davlock lock service.
//
// Failures are returned as *ClientError values that unwrap to the same
// sentinels an in-process lock.Store or header parser returns:
// lock.ErrLockConflict (with a *lock.ConflictError listing the conflicting
// tokens), lock.ErrLockNotFound, lock.ErrLockOwnerMismatch,
// lock.ErrTooManyLocks and header.ErrSyntax. Transport failures unwrap to
// ErrUnavailable, ErrTimeout or ErrRateLimit.
//
// All operations honor context cancellation and deadlines.
type LockClient interface {
	// Create takes a new lock and returns it.
	Create(ctx context.Context, req *CreateRequest) (types.ActiveLock, error)

	// Refresh restarts the timeout of a lock and returns the refreshed lock.
	Refresh(ctx context.Context, req *RefreshRequest) (types.ActiveLock, error)

	// Release removes a lock.
	Release(ctx context.Context, req *ReleaseRequest) error

	// FindActive returns the live locks applying to path, optionally
	// filtered by owner.
	FindActive(ctx context.Context, path string, owner types.Owner) ([]types.ActiveLock, error)

	// FindAll returns every live lock, optionally filtered by owner.
	FindAll(ctx context.Context, owner types.Owner) ([]types.ActiveLock, error)

	// EvaluateIf reports whether an If header is satisfied for a request on
	// a path.
	EvaluateIf(ctx context.Context, req *EvaluateIfRequest) (bool, error)

	// Metrics returns the client-side metrics. It never returns nil.
	Metrics() Metrics

	// Close shuts down the client and releases its connections.
	// The client must not be used after Close is called.
	Close() error
}
