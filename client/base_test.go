package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/testutil"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// newStubbedBase returns a baseClient whose endpoint calls are answered by
// answer instead of a network.
func newStubbedBase(t *testing.T, answer func(endpoint string) error) (*baseClient, *[]string) {
	t.Helper()

	config := DefaultClientConfig()
	config.Endpoints = []string{"endpoint1", "endpoint2"}
	c, err := newBaseClient(config)
	testutil.RequireNoError(t, err)

	c.clock = testutil.FixedClock()
	c.rand = func() float64 { return 0.5 }

	var (
		mu    sync.Mutex
		calls []string
	)
	c.tryEndpointFunc = func(_ context.Context, endpoint string, _ callFunc) error {
		mu.Lock()
		calls = append(calls, endpoint)
		mu.Unlock()
		return answer(endpoint)
	}
	return c, &calls
}

func statusWithReason(code codes.Code, reason string) error {
	st, err := status.New(code, "test").WithDetails(&errdetails.ErrorInfo{
		Reason: reason,
		Domain: rpc.ErrorDomain,
	})
	if err != nil {
		panic(err)
	}
	return st.Err()
}

func TestBaseClient_CalculateBackoff(t *testing.T) {
	c, _ := newStubbedBase(t, func(string) error { return nil })

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, tt.want, c.calculateBackoff(tt.attempt), "attempt %d", tt.attempt)
	}

	c.rand = func() float64 { return 1 }
	testutil.AssertEqual(t, 110*time.Millisecond, c.calculateBackoff(1), "full positive jitter")
}

func TestBaseClient_RetriesUntilSuccess(t *testing.T) {
	failures := 2
	c, calls := newStubbedBase(t, func(string) error {
		if failures > 0 {
			failures--
			return statusWithReason(codes.ResourceExhausted, rpc.ReasonRateLimited)
		}
		return nil
	})

	err := c.executeWithRetry(context.Background(), "op", func(context.Context, rpc.LockServiceClient) error { return nil })
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, *calls, 3)
	testutil.AssertEqual(t, uint64(2), c.metrics.GetRetryCount("op"))
	testutil.AssertEqual(t, uint64(1), c.metrics.GetSuccessCount("op"))
}

func TestBaseClient_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"conflict", statusWithReason(codes.FailedPrecondition, rpc.ReasonLockConflict)},
		{"too many locks", statusWithReason(codes.ResourceExhausted, rpc.ReasonTooManyLocks)},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad")},
		{"plain error", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newStubbedBase(t, func(string) error { return tt.err })

			err := c.executeWithRetry(context.Background(), "op", nil)
			testutil.AssertEqual(t, tt.err, err)
			testutil.AssertLen(t, *calls, 1)
			testutil.AssertEqual(t, uint64(1), c.metrics.GetFailureCount("op"))
		})
	}
}

func TestBaseClient_GivesUpAfterMaxRetries(t *testing.T) {
	unavailable := status.Error(codes.Unavailable, "down")
	c, calls := newStubbedBase(t, func(string) error { return unavailable })

	err := c.executeWithRetry(context.Background(), "op", nil)
	testutil.AssertEqual(t, unavailable, err)
	// Each attempt tries both endpoints.
	testutil.AssertLen(t, *calls, 2*(defaultMaxRetries+1))
	testutil.AssertEqual(t, uint64(defaultMaxRetries), c.metrics.GetRetryCount("op"))
}

func TestBaseClient_EndpointFallback(t *testing.T) {
	c, calls := newStubbedBase(t, func(endpoint string) error {
		if endpoint == "endpoint1" {
			return status.Error(codes.Unavailable, "down")
		}
		return nil
	})
	ctx := context.Background()

	testutil.RequireNoError(t, c.executeWithRetry(ctx, "op", nil))
	testutil.AssertEqual(t, []string{"endpoint1", "endpoint2"}, *calls)
	testutil.AssertEqual(t, "endpoint2", c.getPreferred())

	testutil.RequireNoError(t, c.executeWithRetry(ctx, "op", nil))
	testutil.AssertEqual(t, []string{"endpoint1", "endpoint2", "endpoint2"}, *calls, "preferred endpoint goes first")
}

func TestBaseClient_AnsweredErrorsDoNotFallBack(t *testing.T) {
	conflict := statusWithReason(codes.FailedPrecondition, rpc.ReasonLockConflict)
	c, calls := newStubbedBase(t, func(string) error { return conflict })

	err := c.executeWithRetry(context.Background(), "op", nil)
	testutil.AssertEqual(t, conflict, err)
	testutil.AssertEqual(t, []string{"endpoint1"}, *calls)
	testutil.AssertEqual(t, "endpoint1", c.getPreferred())
}

func TestBaseClient_ContextAndClose(t *testing.T) {
	c, calls := newStubbedBase(t, func(string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	testutil.AssertErrorIs(t, c.executeWithRetry(ctx, "op", nil), context.Canceled)
	testutil.AssertEmpty(t, *calls)

	testutil.RequireNoError(t, c.close())
	testutil.AssertErrorIs(t, c.executeWithRetry(context.Background(), "op", nil), ErrClientClosed)
	testutil.AssertErrorIs(t, c.close(), ErrClientClosed)
	testutil.AssertFalse(t, c.isConnected())
}

func TestBaseClient_SetRetryPolicy(t *testing.T) {
	c, calls := newStubbedBase(t, func(string) error { return status.Error(codes.Unavailable, "down") })
	c.setRetryPolicy(RetryPolicy{MaxRetries: 0})

	_ = c.executeWithRetry(context.Background(), "op", nil)
	testutil.AssertLen(t, *calls, 2)
}
