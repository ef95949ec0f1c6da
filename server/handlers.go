package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jathurchan/davlock/header"
	"github.com/jathurchan/davlock/precondition"
	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/types"
)

// Create implements rpc.LockServiceServer.
func (s *davLockServer) Create(ctx context.Context, req *rpc.CreateRequest) (*rpc.CreateResponse, error) {
	if err := s.validator.ValidateCreateRequest(req); err != nil {
		s.metrics.IncrValidationError(MethodCreate, validationErrorType(err))
		return nil, err
	}

	recursive := true
	if req.Depth != "" {
		depth, err := header.ParseDepth(req.Depth)
		if err != nil {
			return nil, err
		}
		if depth == header.DepthOne {
			s.metrics.IncrValidationError(MethodCreate, ErrorTypeInvalidFormat)
			return nil, NewValidationError("depth", req.Depth, "depth must be 0 or infinity")
		}
		recursive = depth == header.DepthInfinity
	}

	timeout, err := parseTimeout(req.Timeout)
	if err != nil {
		return nil, err
	}

	l, err := s.locks.Create(ctx, types.LockRequest{
		Path:       req.Path,
		Href:       req.Href,
		Recursive:  recursive,
		AccessType: types.AccessType(req.Scope),
		ShareMode:  types.ShareModeWrite,
		Owner:      types.Owner(req.Owner),
		Timeout:    timeout,
	})
	if err != nil {
		return nil, err
	}
	return &rpc.CreateResponse{Lock: rpc.FromActiveLock(l)}, nil
}

// Refresh implements rpc.LockServiceServer.
func (s *davLockServer) Refresh(ctx context.Context, req *rpc.RefreshRequest) (*rpc.RefreshResponse, error) {
	if err := s.validator.ValidateRefreshRequest(req); err != nil {
		s.metrics.IncrValidationError(MethodRefresh, validationErrorType(err))
		return nil, err
	}
	token, err := parseLockToken(req.LockToken)
	if err != nil {
		return nil, err
	}
	timeout, err := parseTimeout(req.Timeout)
	if err != nil {
		return nil, err
	}

	l, err := s.locks.Refresh(ctx, token, types.Owner(req.Owner), timeout)
	if err != nil {
		return nil, err
	}
	return &rpc.RefreshResponse{Lock: rpc.FromActiveLock(l)}, nil
}

// Release implements rpc.LockServiceServer.
func (s *davLockServer) Release(ctx context.Context, req *rpc.ReleaseRequest) (*rpc.ReleaseResponse, error) {
	if err := s.validator.ValidateReleaseRequest(req); err != nil {
		s.metrics.IncrValidationError(MethodRelease, validationErrorType(err))
		return nil, err
	}
	token, err := parseLockToken(req.LockToken)
	if err != nil {
		return nil, err
	}
	if err := s.locks.Release(ctx, token, types.Owner(req.Owner)); err != nil {
		return nil, err
	}
	return &rpc.ReleaseResponse{}, nil
}

// FindActive implements rpc.LockServiceServer.
func (s *davLockServer) FindActive(ctx context.Context, req *rpc.FindActiveRequest) (*rpc.LocksResponse, error) {
	if err := s.validator.ValidateFindActiveRequest(req); err != nil {
		s.metrics.IncrValidationError(MethodFindActive, validationErrorType(err))
		return nil, err
	}
	locks, err := s.locks.FindActive(ctx, req.Path, types.Owner(req.Owner))
	if err != nil {
		return nil, err
	}
	return &rpc.LocksResponse{Locks: rpc.FromActiveLocks(locks)}, nil
}

// FindAll implements rpc.LockServiceServer.
func (s *davLockServer) FindAll(ctx context.Context, req *rpc.FindAllRequest) (*rpc.LocksResponse, error) {
	if err := s.validator.ValidateFindAllRequest(req); err != nil {
		s.metrics.IncrValidationError(MethodFindAll, validationErrorType(err))
		return nil, err
	}
	locks, err := s.locks.FindAll(ctx, types.Owner(req.Owner))
	if err != nil {
		return nil, err
	}
	return &rpc.LocksResponse{Locks: rpc.FromActiveLocks(locks)}, nil
}

// EvaluateIf implements rpc.LockServiceServer.
func (s *davLockServer) EvaluateIf(ctx context.Context, req *rpc.EvaluateIfRequest) (*rpc.EvaluateIfResponse, error) {
	if err := s.validator.ValidateEvaluateIfRequest(req); err != nil {
		s.metrics.IncrValidationError(MethodEvaluateIf, validationErrorType(err))
		return nil, err
	}
	acc, err := precondition.NewRequestAccessor(precondition.AccessorConfig{
		BaseURL:     s.config.BaseURL,
		RequestPath: req.Path,
		Locks:       s.locks,
		Tags:        s.tags,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}
	ok, err := precondition.Check(ctx, req.If, acc)
	if err != nil {
		return nil, err
	}
	return &rpc.EvaluateIfResponse{Satisfied: ok}, nil
}

// parseLockToken accepts a Lock-Token header value or a bare state token.
func parseLockToken(raw string) (types.StateToken, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "<") {
		return types.StateToken(raw), nil
	}
	h, err := header.ParseLockToken(raw)
	if err != nil {
		return "", err
	}
	return types.StateToken(h.StateToken), nil
}

// parseTimeout converts a Timeout header value into a requested lifetime.
// An empty value selects the store default.
func parseTimeout(raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	t, err := header.ParseTimeout(raw)
	if err != nil {
		return 0, err
	}
	if t.Infinite {
		return types.InfiniteTimeout, nil
	}
	return t.Duration, nil
}

func validationErrorType(err error) string {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return ErrorTypeInvalidFormat
	}
	switch {
	case strings.Contains(ve.Message, "cannot be empty"):
		return ErrorTypeMissingField
	case strings.Contains(ve.Message, "cannot exceed"):
		return ErrorTypeTooLong
	default:
		return ErrorTypeInvalidFormat
	}
}
