package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/types"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client errors that have no counterpart in the lock or header packages.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")

	// ErrNoEndpoints is returned when a client is configured without endpoints.
	ErrNoEndpoints = errors.New("at least one endpoint must be provided")

	// ErrUnavailable is returned when no server could be reached.
	ErrUnavailable = errors.New("service unavailable")

	// ErrTimeout is returned when the server gave up on a request.
	ErrTimeout = errors.New("operation timed out")

	// ErrRateLimit is returned when the request is rate limited.
	ErrRateLimit = errors.New("request rate limited")

	// ErrInvalidArgument is returned for rejected request fields.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInternal is returned when the server failed unexpectedly.
	ErrInternal = errors.New("internal server error")
)

// ClientError wraps a failed call with the status the server returned.
// Err is the lock or header sentinel matching the status, so callers test
// failures with errors.Is(err, lock.ErrLockConflict) and friends exactly as
// they would against an in-process store.
type ClientError struct {
	Op      string            // Operation that failed
	Err     error             // Underlying error
	Code    codes.Code        // gRPC status code
	Reason  string            // google.rpc.ErrorInfo reason, if any
	Message string            // Status message from the server
	Details map[string]string // ErrorInfo metadata
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("client %s failed: %s (code: %v, details: %v)", e.Op, msg, e.Code, e.Details)
	}
	return fmt.Sprintf("client %s failed: %s (code: %v)", e.Op, msg, e.Code)
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error.
func (e *ClientError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewClientError creates a new ClientError.
func NewClientError(op string, err error, code codes.Code, details map[string]string) *ClientError {
	return &ClientError{
		Op:      op,
		Err:     err,
		Code:    code,
		Details: details,
	}
}

// fromStatus converts the error of a failed call into a *ClientError.
// Context errors and errors that carry no gRPC status are returned as is.
func fromStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClientClosed) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	ce := &ClientError{
		Op:      op,
		Code:    st.Code(),
		Message: st.Message(),
	}
	if info := errorInfo(st); info != nil {
		ce.Reason = info.GetReason()
		ce.Details = info.GetMetadata()
	}
	ce.Err = errorFromReason(st, ce.Reason, ce.Details)
	return ce
}

// errorFromReason picks the sentinel for a status, preferring the ErrorInfo
// reason over the bare code.
func errorFromReason(st *status.Status, reason string, md map[string]string) error {
	switch reason {
	case rpc.ReasonLockConflict:
		return conflictFromMetadata(md)
	case rpc.ReasonLockNotFound:
		return lock.ErrLockNotFound
	case rpc.ReasonLockOwnerMismatch:
		return lock.ErrLockOwnerMismatch
	case rpc.ReasonHeaderSyntax:
		offset, _ := strconv.Atoi(md[rpc.MetadataOffset])
		return &header.SyntaxError{
			Header: md[rpc.MetadataHeader],
			Offset: offset,
			Reason: st.Message(),
		}
	case rpc.ReasonTooManyLocks:
		return lock.ErrTooManyLocks
	case rpc.ReasonRateLimited:
		return ErrRateLimit
	case rpc.ReasonInvalidArgument:
		return ErrInvalidArgument
	}

	switch st.Code() {
	case codes.FailedPrecondition:
		return lock.ErrLockConflict
	case codes.NotFound:
		return lock.ErrLockNotFound
	case codes.PermissionDenied:
		return lock.ErrLockOwnerMismatch
	case codes.InvalidArgument:
		return ErrInvalidArgument
	case codes.ResourceExhausted:
		return ErrRateLimit
	case codes.DeadlineExceeded:
		return ErrTimeout
	case codes.Unavailable:
		return ErrUnavailable
	case codes.Canceled:
		return context.Canceled
	default:
		return ErrInternal
	}
}

// conflictFromMetadata rebuilds the conflict list from the space-separated
// state tokens the server sends. Only the tokens survive the trip.
func conflictFromMetadata(md map[string]string) *lock.ConflictError {
	ce := &lock.ConflictError{Path: md[rpc.MetadataPath]}
	for _, tok := range strings.Fields(md[rpc.MetadataConflicts]) {
		ce.Conflicts = append(ce.Conflicts, types.ActiveLock{
			Path:       ce.Path,
			StateToken: types.StateToken(tok),
		})
	}
	return ce
}

func errorInfo(st *status.Status) *errdetails.ErrorInfo {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == rpc.ErrorDomain {
			return info
		}
	}
	return nil
}

// isRateLimited reports whether err is a ResourceExhausted status caused by
// rate limiting rather than a full lock table.
func isRateLimited(st *status.Status) bool {
	info := errorInfo(st)
	return info == nil || info.GetReason() == rpc.ReasonRateLimited
}
