package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// connector establishes gRPC connections. Tests substitute their own.
type connector interface {
	// GetConnection creates a new connection to the given endpoint.
	GetConnection(endpoint string, opts ...grpc.DialOption) (*grpc.ClientConn, error)
}

// grpcConnector implements the default connector.
type grpcConnector struct{}

// GetConnection creates a lazily connecting client for the endpoint.
func (c *grpcConnector) GetConnection(endpoint string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	return grpc.NewClient(endpoint, opts...)
}

// callFunc performs one RPC against a connected service client.
type callFunc func(ctx context.Context, client rpc.LockServiceClient) error

// baseClient holds the connections of a client and runs calls through retry
// and endpoint fallback.
type baseClient struct {
	config    Config
	endpoints []string

	mu        sync.RWMutex
	conns     map[string]*grpc.ClientConn
	preferred string // endpoint that answered last

	metrics   Metrics
	closed    atomic.Bool
	clock     clock.Clock
	rand      func() float64
	connector connector

	tryEndpointFunc func(ctx context.Context, endpoint string, fn callFunc) error
}

// newBaseClient creates a new base client with the given configuration.
func newBaseClient(config Config) (*baseClient, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	c := &baseClient{
		config:    config,
		endpoints: slices.Clone(config.Endpoints),
		conns:     make(map[string]*grpc.ClientConn),
		clock:     clock.New(),
		rand:      rand.Float64,
		connector: &grpcConnector{},
	}
	if config.EnableMetrics {
		c.metrics = newMetrics()
	} else {
		c.metrics = noOpMetrics{}
	}
	return c, nil
}

// setRetryPolicy updates the client's retry policy.
func (c *baseClient) setRetryPolicy(policy RetryPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.RetryPolicy = policy
}

// buildDialOptions returns gRPC dial options based on the current configuration.
func (c *baseClient) buildDialOptions() []grpc.DialOption {
	c.mu.RLock()
	defer c.mu.RUnlock()

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.config.KeepAlive.Time,
			Timeout:             c.config.KeepAlive.Timeout,
			PermitWithoutStream: c.config.KeepAlive.PermitWithoutStream,
		}),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(rpc.CodecName),
			grpc.MaxCallRecvMsgSize(c.config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(c.config.MaxMessageSize),
		),
	}
	return append(opts, c.config.DialOptions...)
}

// getConnection returns the cached connection for endpoint or dials a new
// one and waits up to DialTimeout for it to become ready.
func (c *baseClient) getConnection(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.mu.RLock()
	if conn, ok := c.conns[endpoint]; ok {
		c.mu.RUnlock()
		return conn, nil
	}
	c.mu.RUnlock()

	dialOpts := c.buildDialOptions()

	c.mu.Lock()
	if conn, ok := c.conns[endpoint]; ok {
		c.mu.Unlock()
		return conn, nil
	}
	conn, err := c.connector.GetConnection(endpoint, dialOpts...)
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	c.conns[endpoint] = conn
	count := len(c.conns)
	dialTimeout := c.config.DialTimeout
	c.mu.Unlock()

	c.metrics.SetConnectionCount(count)

	if dialTimeout > 0 {
		if err := waitForReady(ctx, conn, dialTimeout); err != nil {
			c.dropConnection(endpoint, conn)
			return nil, status.Errorf(codes.Unavailable, "connect to %s: %v", endpoint, err)
		}
	}
	return conn, nil
}

// waitForReady blocks until conn is ready or the timeout expires.
func waitForReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("connection %s: %w", state, ctx.Err())
		}
	}
}

func (c *baseClient) dropConnection(endpoint string, conn *grpc.ClientConn) {
	c.mu.Lock()
	if c.conns[endpoint] == conn {
		delete(c.conns, endpoint)
	}
	count := len(c.conns)
	c.mu.Unlock()

	_ = conn.Close()
	c.metrics.SetConnectionCount(count)
}

// executeWithRetry runs fn with backoff between retryable failures.
// The last error is returned unchanged.
func (c *baseClient) executeWithRetry(ctx context.Context, operation string, fn callFunc) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	start := c.clock.Now()
	defer func() { c.metrics.ObserveLatency(operation, c.clock.Since(start)) }()

	c.mu.RLock()
	maxRetries := c.config.RetryPolicy.MaxRetries
	c.mu.RUnlock()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.tryOperation(ctx, fn)
		if err == nil {
			c.metrics.IncrSuccess(operation)
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClientClosed) {
			break
		}
		if !c.isRetryable(err) || attempt == maxRetries {
			break
		}

		c.metrics.IncrRetry(operation)
		backoff := c.calculateBackoff(attempt + 1)

		select {
		case <-c.clock.After(backoff):
		case <-ctx.Done():
			c.metrics.IncrFailure(operation)
			return ctx.Err()
		}
	}

	c.metrics.IncrFailure(operation)
	return lastErr
}

// tryOperation sends fn to the preferred endpoint, then to the others in
// order. Only an unreachable endpoint moves the call on: an answer from a
// server, successful or not, is final.
func (c *baseClient) tryOperation(ctx context.Context, fn callFunc) error {
	var lastErr error

	preferred := c.getPreferred()
	if preferred != "" {
		err := c.tryEndpoint(ctx, preferred, fn)
		if !isUnreachable(err) {
			return err
		}
		c.setPreferred("")
		lastErr = err
	}

	for _, endpoint := range c.endpoints {
		if endpoint == preferred {
			continue
		}
		err := c.tryEndpoint(ctx, endpoint, fn)
		if !isUnreachable(err) {
			c.setPreferred(endpoint)
			return err
		}
		lastErr = err
	}

	if lastErr != nil {
		return lastErr
	}
	return status.Error(codes.Unavailable, "no reachable endpoint")
}

// isUnreachable reports whether err means the endpoint never handled the call.
func isUnreachable(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unavailable
}

// tryEndpoint invokes fn on the specified endpoint under the request timeout.
func (c *baseClient) tryEndpoint(ctx context.Context, endpoint string, fn callFunc) error {
	if c.tryEndpointFunc != nil {
		return c.tryEndpointFunc(ctx, endpoint, fn)
	}

	conn, err := c.getConnection(ctx, endpoint)
	if err != nil {
		return err
	}

	c.mu.RLock()
	timeout := c.config.RequestTimeout
	c.mu.RUnlock()

	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	return fn(reqCtx, rpc.NewLockServiceClient(conn))
}

// calculateBackoff computes exponential backoff with optional jitter.
func (c *baseClient) calculateBackoff(attempt int) time.Duration {
	c.mu.RLock()
	policy := c.config.RetryPolicy
	c.mu.RUnlock()

	backoff := float64(policy.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= policy.BackoffMultiplier
	}
	if backoff > float64(policy.MaxBackoff) {
		backoff = float64(policy.MaxBackoff)
	}

	if policy.JitterFactor > 0 {
		jitter := (c.rand()*2 - 1) * policy.JitterFactor * backoff
		backoff += jitter
	}

	if backoff < 0 {
		return 0
	}
	return time.Duration(backoff)
}

// isRetryable reports whether the status code of err is listed in the
// retry policy. A full lock table is never retried.
func (c *baseClient) isRetryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	if st.Code() == codes.ResourceExhausted && !isRateLimited(st) {
		return false
	}

	c.mu.RLock()
	retryable := c.config.RetryPolicy.RetryableCodes
	c.mu.RUnlock()
	return slices.Contains(retryable, st.Code())
}

func (c *baseClient) getPreferred() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preferred
}

func (c *baseClient) setPreferred(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preferred = endpoint
}

// isConnected reports whether there are any open connections.
func (c *baseClient) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns) > 0
}

// close shuts down all gRPC connections and marks the client as closed.
func (c *baseClient) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for ep, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection to %s: %w", ep, err))
		}
	}
	c.conns = make(map[string]*grpc.ClientConn)
	c.metrics.SetConnectionCount(0)

	return errors.Join(errs...)
}
