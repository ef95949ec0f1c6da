package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/types"
)

const (
	// releaseTimeout is the duration allowed for a best-effort lock release during Close.
	releaseTimeout = 5 * time.Second
)

// ErrNotHeld is returned by LockHandle operations that need a held lock.
var ErrNotHeld = errors.New("lock is not held by this handle")

// LockHandle manages the lifecycle of a single lock: it remembers the state
// token of the last successful Create or Refresh so callers never handle it
// directly. All methods are safe for concurrent use.
type LockHandle interface {
	// Acquire creates the lock. With wait set, a conflicting lock makes the
	// handle poll with backoff until the lock is granted or ctx ends.
	Acquire(ctx context.Context, wait bool) error

	// Refresh restarts the lock timeout using the handle's Timeout value.
	// A lock that expired on the server is dropped from the handle.
	Refresh(ctx context.Context) error

	// Release removes the lock.
	Release(ctx context.Context) error

	// IsHeld reports whether the handle holds a lock.
	IsHeld() bool

	// Lock returns a copy of the held lock, or nil.
	Lock() *types.ActiveLock

	// Close releases the lock if held and marks the handle as closed.
	// It is safe to call Close multiple times.
	Close(ctx context.Context) error
}

// lockHandle implements the LockHandle interface.
type lockHandle struct {
	client LockClient
	req    CreateRequest
	clock  clock.Clock

	mu     sync.RWMutex
	lock   *types.ActiveLock // nil when not held
	closed bool
}

// NewLockHandle returns a handle that creates locks with req. Path and
// Owner are required.
func NewLockHandle(client LockClient, req CreateRequest) (LockHandle, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if req.Path == "" {
		return nil, errors.New("path cannot be empty")
	}
	if req.Owner == "" {
		return nil, errors.New("owner cannot be empty")
	}
	if req.Scope == "" {
		req.Scope = types.AccessExclusive
	}
	return &lockHandle{
		client: client,
		req:    req,
		clock:  clock.New(),
	}, nil
}

func (h *lockHandle) Acquire(ctx context.Context, wait bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClientClosed
	}

	backoff := defaultInitialBackoff
	for {
		l, err := h.client.Create(ctx, &h.req)
		if err == nil {
			h.lock = &l
			return nil
		}
		if !wait || !errors.Is(err, lock.ErrLockConflict) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.clock.After(backoff):
		}
		backoff = min(time.Duration(float64(backoff)*defaultBackoffMultiplier), defaultMaxBackoff)
	}
}

func (h *lockHandle) Refresh(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClientClosed
	}
	if h.lock == nil {
		return ErrNotHeld
	}

	l, err := h.client.Refresh(ctx, &RefreshRequest{
		LockToken: h.lock.StateToken.String(),
		Owner:     h.req.Owner,
		Timeout:   h.req.Timeout,
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockNotFound) {
			h.lock = nil
		}
		return err
	}
	h.lock = &l
	return nil
}

func (h *lockHandle) Release(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClientClosed
	}
	if h.lock == nil {
		return ErrNotHeld
	}

	err := h.client.Release(ctx, &ReleaseRequest{
		LockToken: h.lock.StateToken.String(),
		Owner:     h.req.Owner,
	})
	if err != nil && !errors.Is(err, lock.ErrLockNotFound) {
		return err
	}
	h.lock = nil
	return err
}

func (h *lockHandle) IsHeld() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.closed && h.lock != nil
}

func (h *lockHandle) Lock() *types.ActiveLock {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed || h.lock == nil {
		return nil
	}
	lockCopy := *h.lock
	if lockCopy.LastRefresh != nil {
		t := *lockCopy.LastRefresh
		lockCopy.LastRefresh = &t
	}
	return &lockCopy
}

func (h *lockHandle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.lock != nil {
		// Detached from ctx so an already cancelled caller still releases.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()

		_ = h.client.Release(releaseCtx, &ReleaseRequest{
			LockToken: h.lock.StateToken.String(),
			Owner:     h.req.Owner,
		})
		h.lock = nil
	}
	return nil
}
