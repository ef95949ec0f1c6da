package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/types"
)

// AutoRenewer refreshes a held lock in the background so it does not time
// out while work under it is still running.
type AutoRenewer interface {
	// Start begins the auto-renewal process in a background goroutine.
	// The provided context is used to control the lifecycle of the renewal process.
	Start(ctx context.Context)

	// Stop gracefully stops the auto-renewal loop and waits for it to exit.
	// Returns any terminal error from the renewal process or shutdown.
	Stop(ctx context.Context) error

	// Done returns a channel that's closed when the auto-renewer has stopped.
	Done() <-chan struct{}

	// Err returns the error that caused the renewer to stop, if any.
	// Returns nil if stopped gracefully.
	Err() error
}

// autoRenewer implements AutoRenewer.
// It runs a background loop that periodically refreshes a lock handle.
// The loop is cancellable via context and reports any terminal failure.
type autoRenewer struct {
	handle   LockHandle    // LockHandle to refresh periodically.
	interval time.Duration // Frequency of refresh attempts.

	clock clock.Clock

	mu     sync.RWMutex
	ctx    context.Context    // Context controlling the renewal loop.
	cancel context.CancelFunc // Cancels the renewal loop.
	wg     sync.WaitGroup     // Waits for the renewal goroutine to exit in Stop.

	err error // Terminal error that stopped the renewer, if any.
}

// AutoRenewerOptions holds optional configuration for an AutoRenewer.
type AutoRenewerOptions struct {
	Clock clock.Clock
}

// AutoRenewerOption is a function that applies a configuration option to an AutoRenewer.
type AutoRenewerOption func(*AutoRenewerOptions)

// WithClock sets the clock that schedules refreshes.
func WithClock(clk clock.Clock) AutoRenewerOption {
	return func(opts *AutoRenewerOptions) {
		opts.Clock = clk
	}
}

// NewAutoRenewer creates an AutoRenewer that refreshes handle every interval.
// The interval should be well below the lock timeout; RenewInterval derives
// one from a granted lock.
func NewAutoRenewer(handle LockHandle, interval time.Duration, opts ...AutoRenewerOption) (AutoRenewer, error) {
	if handle == nil {
		return nil, errors.New("lock handle cannot be nil")
	}
	if interval <= 0 {
		return nil, errors.New("renewal interval must be positive")
	}

	options := &AutoRenewerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	clk := options.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &autoRenewer{
		handle:   handle,
		interval: interval,
		clock:    clk,
	}, nil
}

// RenewInterval returns a refresh interval for l: a third of its timeout, or
// zero for locks that never expire.
func RenewInterval(l types.ActiveLock) time.Duration {
	if l.Timeout == types.InfiniteTimeout || l.Timeout <= 0 {
		return 0
	}
	return max(l.Timeout/3, time.Second)
}

func (r *autoRenewer) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()
}

func (r *autoRenewer) Stop(ctx context.Context) error {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()

	if cancel == nil {
		return nil // Not started
	}

	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if err := r.Err(); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for auto-renewer to stop: %w", ctx.Err())
	}
}

// Done returns a channel that is closed when the renewer stops.
func (r *autoRenewer) Done() <-chan struct{} {
	r.mu.RLock()
	ctx := r.ctx
	r.mu.RUnlock()

	if ctx == nil {
		// Return a closed channel if Start hasn't been called.
		closedCh := make(chan struct{})
		close(closedCh)
		return closedCh
	}
	return r.ctx.Done()
}

// Err returns the error that caused the renewer to stop.
func (r *autoRenewer) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// setError sets the error field in a thread-safe way.
func (r *autoRenewer) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// run is the main renewal loop.
func (r *autoRenewer) run() {
	defer r.wg.Done()
	defer r.cancel() // Ensure context is canceled on exit

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if !r.handle.IsHeld() {
				r.setError(fmt.Errorf("auto-renewal stopped: %w", ErrNotHeld))
				return
			}

			if err := r.handle.Refresh(r.ctx); err != nil {
				r.setError(fmt.Errorf("auto-renewal failed: %w", err))
				return
			}

		case <-r.ctx.Done():
			r.setError(r.ctx.Err())
			return
		}
	}
}
