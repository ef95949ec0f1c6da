package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/rpc"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

var (
	// ErrServerNotStarted indicates the server has not been started.
	ErrServerNotStarted = errors.New("server: server not started")

	// ErrServerAlreadyStarted indicates an attempt to start an already running server.
	ErrServerAlreadyStarted = errors.New("server: server already started")

	// ErrServerStopped indicates the server has been stopped and cannot be restarted.
	ErrServerStopped = errors.New("server: server stopped")

	// ErrRateLimited indicates the request was rejected due to rate limiting policies.
	ErrRateLimited = errors.New("server: request rate limited")

	// ErrShutdownTimeout indicates the server's graceful shutdown process timed out.
	ErrShutdownTimeout = errors.New("server: shutdown timed out")
)

// ValidationError represents a request validation error with details about the specific field.
type ValidationError struct {
	Field   string // The name of the field that failed validation.
	Value   any    // The value of the field that caused the error.
	Message string // A descriptive message explaining the validation failure.
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Error implements the error interface, providing a structured validation error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("server: validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// ErrorToStatus converts an error returned by the lock store, the header
// parser or the request validator into a gRPC status error. Client errors
// carry a google.rpc.ErrorInfo detail whose reason identifies the failure.
func ErrorToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		validationErr *ValidationError
		syntaxErr     *header.SyntaxError
		conflictErr   *lock.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		st := status.New(codes.InvalidArgument, validationErr.Message)
		return withDetails(st,
			errorInfo(rpc.ReasonInvalidArgument, nil),
			&errdetails.BadRequest{FieldViolations: []*errdetails.BadRequest_FieldViolation{{
				Field:       validationErr.Field,
				Description: validationErr.Message,
			}}},
		)

	case errors.As(err, &syntaxErr):
		st := status.New(codes.InvalidArgument, syntaxErr.Error())
		return withDetails(st, errorInfo(rpc.ReasonHeaderSyntax, map[string]string{
			rpc.MetadataHeader: syntaxErr.Header,
			rpc.MetadataOffset: strconv.Itoa(syntaxErr.Offset),
		}))

	case errors.As(err, &conflictErr):
		tokens := make([]string, len(conflictErr.Conflicts))
		for i, l := range conflictErr.Conflicts {
			tokens[i] = l.StateToken.String()
		}
		st := status.New(codes.FailedPrecondition, conflictErr.Error())
		return withDetails(st, errorInfo(rpc.ReasonLockConflict, map[string]string{
			rpc.MetadataPath:      conflictErr.Path,
			rpc.MetadataConflicts: strings.Join(tokens, " "),
		}))

	case errors.Is(err, lock.ErrLockConflict):
		return withDetails(status.New(codes.FailedPrecondition, err.Error()), errorInfo(rpc.ReasonLockConflict, nil))

	case errors.Is(err, lock.ErrLockNotFound):
		return withDetails(status.New(codes.NotFound, err.Error()), errorInfo(rpc.ReasonLockNotFound, nil))

	case errors.Is(err, lock.ErrLockOwnerMismatch):
		return withDetails(status.New(codes.PermissionDenied, err.Error()), errorInfo(rpc.ReasonLockOwnerMismatch, nil))

	case errors.Is(err, header.ErrSyntax), errors.Is(err, header.ErrEmptyIfHeader):
		return withDetails(status.New(codes.InvalidArgument, err.Error()), errorInfo(rpc.ReasonHeaderSyntax, nil))

	case errors.Is(err, lock.ErrInvalidRequest), errors.Is(err, lock.ErrInvalidTimeout):
		return withDetails(status.New(codes.InvalidArgument, err.Error()), errorInfo(rpc.ReasonInvalidArgument, nil))

	case errors.Is(err, lock.ErrTooManyLocks):
		return withDetails(status.New(codes.ResourceExhausted, err.Error()), errorInfo(rpc.ReasonTooManyLocks, nil))

	case errors.Is(err, ErrRateLimited):
		return withDetails(status.New(codes.ResourceExhausted, err.Error()), errorInfo(rpc.ReasonRateLimited, nil))

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, ErrServerNotStarted), errors.Is(err, ErrServerStopped):
		return status.Error(codes.Unavailable, err.Error())

	default:
		// err.Error() may leak internal details.
		return status.Error(codes.Internal, "An unexpected internal error occurred.")
	}
}

func errorInfo(reason string, metadata map[string]string) *errdetails.ErrorInfo {
	return &errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   rpc.ErrorDomain,
		Metadata: metadata,
	}
}

func withDetails(st *status.Status, details ...protoadapt.MessageV1) error {
	withDetails, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
