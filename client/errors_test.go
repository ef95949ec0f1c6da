package client

import (
	"context"
	"errors"
	"testing"

	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/testutil"
	"github.com/jathurchan/davlock/types"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func statusWithMetadata(code codes.Code, reason string, md map[string]string) error {
	st, err := status.New(code, "server message").WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   rpc.ErrorDomain,
		Metadata: md,
	})
	if err != nil {
		panic(err)
	}
	return st.Err()
}

func TestFromStatus_Sentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"conflict reason", statusWithMetadata(codes.FailedPrecondition, rpc.ReasonLockConflict, nil), lock.ErrLockConflict},
		{"not found reason", statusWithMetadata(codes.NotFound, rpc.ReasonLockNotFound, nil), lock.ErrLockNotFound},
		{"owner reason", statusWithMetadata(codes.PermissionDenied, rpc.ReasonLockOwnerMismatch, nil), lock.ErrLockOwnerMismatch},
		{"syntax reason", statusWithMetadata(codes.InvalidArgument, rpc.ReasonHeaderSyntax, nil), header.ErrSyntax},
		{"too many locks", statusWithMetadata(codes.ResourceExhausted, rpc.ReasonTooManyLocks, nil), lock.ErrTooManyLocks},
		{"rate limited", statusWithMetadata(codes.ResourceExhausted, rpc.ReasonRateLimited, nil), ErrRateLimit},
		{"invalid argument reason", statusWithMetadata(codes.InvalidArgument, rpc.ReasonInvalidArgument, nil), ErrInvalidArgument},
		{"bare failed precondition", status.Error(codes.FailedPrecondition, "x"), lock.ErrLockConflict},
		{"bare not found", status.Error(codes.NotFound, "x"), lock.ErrLockNotFound},
		{"bare permission denied", status.Error(codes.PermissionDenied, "x"), lock.ErrLockOwnerMismatch},
		{"bare invalid argument", status.Error(codes.InvalidArgument, "x"), ErrInvalidArgument},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), ErrTimeout},
		{"unavailable", status.Error(codes.Unavailable, "x"), ErrUnavailable},
		{"internal", status.Error(codes.Internal, "x"), ErrInternal},
		{"unknown", status.Error(codes.Unknown, "x"), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fromStatus("op", tt.err)
			testutil.AssertErrorIs(t, err, tt.target)

			var ce *ClientError
			testutil.RequireTrue(t, errors.As(err, &ce))
			testutil.AssertEqual(t, "op", ce.Op)
			testutil.AssertEqual(t, status.Code(tt.err), ce.Code)
		})
	}
}

func TestFromStatus_Conflict(t *testing.T) {
	err := fromStatus("create", statusWithMetadata(codes.FailedPrecondition, rpc.ReasonLockConflict, map[string]string{
		rpc.MetadataPath:      "/docs",
		rpc.MetadataConflicts: "urn:uuid:1 urn:uuid:2",
	}))

	var conflict *lock.ConflictError
	testutil.RequireTrue(t, errors.As(err, &conflict))
	testutil.AssertEqual(t, "/docs", conflict.Path)
	testutil.AssertEqual(t, []types.ActiveLock{
		{Path: "/docs", StateToken: "urn:uuid:1"},
		{Path: "/docs", StateToken: "urn:uuid:2"},
	}, conflict.Conflicts)

	var ce *ClientError
	testutil.RequireTrue(t, errors.As(err, &ce))
	testutil.AssertEqual(t, rpc.ReasonLockConflict, ce.Reason)
	testutil.AssertContains(t, ce.Error(), "client create failed: server message")
}

func TestFromStatus_Syntax(t *testing.T) {
	err := fromStatus("evaluate_if", statusWithMetadata(codes.InvalidArgument, rpc.ReasonHeaderSyntax, map[string]string{
		rpc.MetadataHeader: "If",
		rpc.MetadataOffset: "7",
	}))

	var syntaxErr *header.SyntaxError
	testutil.RequireTrue(t, errors.As(err, &syntaxErr))
	testutil.AssertEqual(t, "If", syntaxErr.Header)
	testutil.AssertEqual(t, 7, syntaxErr.Offset)
}

func TestFromStatus_Passthrough(t *testing.T) {
	testutil.AssertNil(t, fromStatus("op", nil))

	plain := errors.New("plain")
	testutil.AssertEqual(t, plain, fromStatus("op", plain))
	testutil.AssertEqual(t, context.Canceled, fromStatus("op", context.Canceled))
	testutil.AssertEqual(t, ErrClientClosed, fromStatus("op", ErrClientClosed))
}

func TestFromStatus_IgnoresForeignDomain(t *testing.T) {
	st, err := status.New(codes.NotFound, "x").WithDetails(&errdetails.ErrorInfo{
		Reason: rpc.ReasonLockOwnerMismatch,
		Domain: "other",
	})
	testutil.RequireNoError(t, err)

	got := fromStatus("op", st.Err())
	testutil.AssertErrorIs(t, got, lock.ErrLockNotFound)
}

func TestClientError(t *testing.T) {
	ce := NewClientError("release", lock.ErrLockNotFound, codes.NotFound, map[string]string{"k": "v"})

	testutil.AssertErrorIs(t, ce, lock.ErrLockNotFound)
	testutil.AssertEqual(t, lock.ErrLockNotFound, errors.Unwrap(ce))
	testutil.AssertContains(t, ce.Error(), "client release failed: lock: lock not found")
	testutil.AssertContains(t, ce.Error(), "details: map[k:v]")
}
