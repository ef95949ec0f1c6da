package client

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jathurchan/davlock/etag"
	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/server"
	"github.com/jathurchan/davlock/testutil"
	"github.com/jathurchan/davlock/types"
	"google.golang.org/grpc/codes"
)

func TestClient_LockLifecycle(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	ctx := context.Background()

	l, err := e.client.Create(ctx, &CreateRequest{
		Path:    "/docs",
		Scope:   types.AccessExclusive,
		Owner:   "alice",
		Timeout: "Second-60",
	})
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, strings.HasPrefix(l.StateToken.String(), lock.StateTokenScheme))
	testutil.AssertEqual(t, "/docs", l.Path)
	testutil.AssertTrue(t, l.Recursive)
	testutil.AssertEqual(t, 60*time.Second, l.Timeout)
	testutil.AssertEqual(t, types.Owner("alice"), l.Owner)

	found, err := e.client.FindActive(ctx, "/docs/a.txt", "")
	testutil.RequireNoError(t, err)
	testutil.RequireLen(t, found, 1)
	testutil.AssertEqual(t, l.StateToken, found[0].StateToken)

	mine, err := e.client.FindAll(ctx, "bob")
	testutil.RequireNoError(t, err)
	testutil.AssertEmpty(t, mine)

	e.clock.Advance(30 * time.Second)
	refreshed, err := e.client.Refresh(ctx, &RefreshRequest{
		LockToken: "<" + l.StateToken.String() + ">",
		Owner:     "alice",
		Timeout:   "Second-120",
	})
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, 120*time.Second, refreshed.Timeout)
	testutil.RequireNotNil(t, refreshed.LastRefresh)
	testutil.AssertTrue(t, refreshed.Expiration.After(l.Expiration))

	testutil.RequireNoError(t, e.client.Release(ctx, &ReleaseRequest{LockToken: l.StateToken.String()}))

	all, err := e.client.FindAll(ctx, "")
	testutil.RequireNoError(t, err)
	testutil.AssertEmpty(t, all)

	m := e.client.Metrics()
	testutil.AssertEqual(t, uint64(1), m.GetSuccessCount(opCreate))
	testutil.AssertEqual(t, uint64(2), m.GetSuccessCount(opFindAll))
	testutil.AssertEqual(t, 1, m.GetConnectionCount())
}

func TestClient_Conflict(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	ctx := context.Background()

	held, err := e.client.Create(ctx, &CreateRequest{Path: "/docs", Scope: types.AccessShared, Owner: "alice"})
	testutil.RequireNoError(t, err)

	_, err = e.client.Create(ctx, &CreateRequest{Path: "/docs/a.txt", Depth: "0", Scope: types.AccessExclusive, Owner: "bob"})
	testutil.AssertErrorIs(t, err, lock.ErrLockConflict)

	var conflict *lock.ConflictError
	testutil.RequireTrue(t, errors.As(err, &conflict))
	testutil.AssertEqual(t, "/docs/a.txt", conflict.Path)
	testutil.RequireLen(t, conflict.Conflicts, 1)
	testutil.AssertEqual(t, held.StateToken, conflict.Conflicts[0].StateToken)

	var ce *ClientError
	testutil.RequireTrue(t, errors.As(err, &ce))
	testutil.AssertEqual(t, codes.FailedPrecondition, ce.Code)
	testutil.AssertEqual(t, opCreate, ce.Op)

	testutil.AssertEqual(t, uint64(0), e.client.Metrics().GetRetryCount(opCreate), "conflicts are not retried")
	testutil.AssertEqual(t, uint64(1), e.client.Metrics().GetFailureCount(opCreate))
}

func TestClient_ErrorMapping(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	ctx := context.Background()

	l, err := e.client.Create(ctx, &CreateRequest{Path: "/a", Scope: types.AccessExclusive, Owner: "alice"})
	testutil.RequireNoError(t, err)

	tests := []struct {
		name   string
		call   func() error
		target error
	}{
		{"unknown token", func() error {
			_, err := e.client.Refresh(ctx, &RefreshRequest{LockToken: "urn:uuid:missing"})
			return err
		}, lock.ErrLockNotFound},
		{"owner mismatch", func() error {
			return e.client.Release(ctx, &ReleaseRequest{LockToken: l.StateToken.String(), Owner: "bob"})
		}, lock.ErrLockOwnerMismatch},
		{"bad scope", func() error {
			_, err := e.client.Create(ctx, &CreateRequest{Path: "/b", Scope: "Exclusive"})
			return err
		}, ErrInvalidArgument},
		{"bad depth", func() error {
			_, err := e.client.Create(ctx, &CreateRequest{Path: "/b", Scope: types.AccessShared, Depth: "1"})
			return err
		}, ErrInvalidArgument},
		{"bad timeout", func() error {
			_, err := e.client.Create(ctx, &CreateRequest{Path: "/b", Scope: types.AccessShared, Timeout: "Minute-5"})
			return err
		}, header.ErrSyntax},
		{"bad if header", func() error {
			_, err := e.client.EvaluateIf(ctx, &EvaluateIfRequest{Path: "/a", If: "(<urn:uuid:x>"})
			return err
		}, header.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			testutil.RequireError(t, err)
			testutil.AssertErrorIs(t, err, tt.target)
		})
	}

	_, err = e.client.EvaluateIf(ctx, &EvaluateIfRequest{Path: "/a", If: "(<urn:uuid:x>"})
	var syntaxErr *header.SyntaxError
	testutil.RequireTrue(t, errors.As(err, &syntaxErr))
	testutil.AssertEqual(t, header.NameIf, syntaxErr.Header)
}

func TestClient_EvaluateIf(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	ctx := context.Background()

	e.tags.Set("/docs/a.txt", etag.New("v1"))
	l, err := e.client.Create(ctx, &CreateRequest{Path: "/docs", Scope: types.AccessExclusive, Owner: "alice"})
	testutil.RequireNoError(t, err)
	coded := "<" + l.StateToken.String() + ">"

	ok, err := e.client.EvaluateIf(ctx, &EvaluateIfRequest{Path: "/docs/a.txt", If: "(" + coded + ` ["v1"])`})
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, ok)

	ok, err = e.client.EvaluateIf(ctx, &EvaluateIfRequest{Path: "/docs/a.txt", If: `(["v2"])`})
	testutil.RequireNoError(t, err)
	testutil.AssertFalse(t, ok)

	ok, err = e.client.EvaluateIf(ctx, &EvaluateIfRequest{Path: "/", If: "<" + testBaseURL + "docs> (" + coded + ")"})
	testutil.RequireNoError(t, err)
	testutil.AssertTrue(t, ok)
}

func TestClient_RateLimitIsRetried(t *testing.T) {
	e := newTestEnv(t,
		func(b *server.ServerBuilder) { b.WithRateLimit(true, 1, 1, time.Hour) },
		func(b *LockClientBuilder) { b.WithRetryOptions(2, time.Millisecond, 2*time.Millisecond, 2) },
	)
	ctx := context.Background()

	_, err := e.client.FindAll(ctx, "")
	testutil.RequireNoError(t, err)

	_, err = e.client.FindAll(ctx, "")
	testutil.AssertErrorIs(t, err, ErrRateLimit)
	testutil.AssertEqual(t, uint64(2), e.client.Metrics().GetRetryCount(opFindAll))
}

func TestClient_Closed(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	ctx := context.Background()

	testutil.RequireNoError(t, e.client.Close())
	testutil.AssertErrorIs(t, e.client.Close(), ErrClientClosed)

	_, err := e.client.FindAll(ctx, "")
	testutil.AssertErrorIs(t, err, ErrClientClosed)
}

func TestClient_CancelledContext(t *testing.T) {
	e := newTestEnv(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.client.FindAll(ctx, "")
	testutil.AssertErrorIs(t, err, context.Canceled)
}

func TestNewLockClient_NoEndpoints(t *testing.T) {
	_, err := NewLockClient(DefaultClientConfig())
	testutil.AssertErrorIs(t, err, ErrNoEndpoints)
}
