package client

import (
	"context"
	"fmt"

	"github.com/jathurchan/davlock/types"
)

// DoWithLock takes the lock described by req, runs fn while holding it and
// releases it afterwards. A conflicting lock fails immediately.
func DoWithLock(ctx context.Context, client LockClient, req CreateRequest, fn func(ctx context.Context, l types.ActiveLock) error) (err error) {
	handle, err := NewLockHandle(client, req)
	if err != nil {
		return fmt.Errorf("failed to create lock handle: %w", err)
	}
	defer func() {
		closeErr := handle.Close(ctx)
		if err == nil {
			err = closeErr
		}
	}()

	if err = handle.Acquire(ctx, false); err != nil {
		return err
	}
	return fn(ctx, *handle.Lock())
}

// RunWithLock is like DoWithLock but waits for conflicting locks to go away
// and keeps the lock refreshed while fn runs. The context passed to fn is
// cancelled if the lock can no longer be refreshed; the refresh error is
// then returned.
func RunWithLock(ctx context.Context, client LockClient, req CreateRequest, fn func(ctx context.Context, l types.ActiveLock) error) (err error) {
	handle, err := NewLockHandle(client, req)
	if err != nil {
		return fmt.Errorf("failed to create lock handle: %w", err)
	}
	defer func() {
		closeErr := handle.Close(ctx)
		if err == nil {
			err = closeErr
		}
	}()

	if err = handle.Acquire(ctx, true); err != nil {
		return err
	}
	held := *handle.Lock()

	interval := RenewInterval(held)
	if interval <= 0 {
		return fn(ctx, held)
	}

	renewer, err := NewAutoRenewer(handle, interval)
	if err != nil {
		return fmt.Errorf("failed to create auto-renewer: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	renewer.Start(runCtx)
	go func() {
		select {
		case <-renewer.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()

	err = fn(runCtx, held)
	cancel()
	if stopErr := renewer.Stop(context.WithoutCancel(ctx)); stopErr != nil {
		return stopErr
	}
	return err
}
