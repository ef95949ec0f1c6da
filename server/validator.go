package server

import (
	"fmt"
	"strings"

	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/types"
)

// RequestValidator checks incoming requests for values the service never
// accepts. Header-valued fields (Depth, Timeout, If) are checked by their
// parsers instead.
type RequestValidator interface {
	ValidateCreateRequest(req *rpc.CreateRequest) error
	ValidateRefreshRequest(req *rpc.RefreshRequest) error
	ValidateReleaseRequest(req *rpc.ReleaseRequest) error
	ValidateFindActiveRequest(req *rpc.FindActiveRequest) error
	ValidateFindAllRequest(req *rpc.FindAllRequest) error
	ValidateEvaluateIfRequest(req *rpc.EvaluateIfRequest) error
}

// requestValidator implements the RequestValidator interface.
type requestValidator struct {
	logger logger.Logger
}

// NewRequestValidator creates a new default request validator.
func NewRequestValidator(logger logger.Logger) RequestValidator {
	return &requestValidator{logger: logger}
}

// ValidateCreateRequest validates a create lock request.
func (v *requestValidator) ValidateCreateRequest(req *rpc.CreateRequest) error {
	if err := v.validatePath("path", req.Path); err != nil {
		return err
	}
	if req.Href != "" {
		if err := v.validatePath("href", req.Href); err != nil {
			return err
		}
	}
	if !types.AccessType(req.Scope).IsValid() {
		return NewValidationError("scope", req.Scope,
			fmt.Sprintf("scope must be %q or %q", types.AccessExclusive, types.AccessShared))
	}
	return v.validateOwner(req.Owner)
}

// ValidateRefreshRequest validates a refresh lock request.
func (v *requestValidator) ValidateRefreshRequest(req *rpc.RefreshRequest) error {
	if err := v.validateToken(req.LockToken); err != nil {
		return err
	}
	return v.validateOwner(req.Owner)
}

// ValidateReleaseRequest validates a release lock request.
func (v *requestValidator) ValidateReleaseRequest(req *rpc.ReleaseRequest) error {
	if err := v.validateToken(req.LockToken); err != nil {
		return err
	}
	return v.validateOwner(req.Owner)
}

// ValidateFindActiveRequest validates a find active request.
func (v *requestValidator) ValidateFindActiveRequest(req *rpc.FindActiveRequest) error {
	if err := v.validatePath("path", req.Path); err != nil {
		return err
	}
	return v.validateOwner(req.Owner)
}

// ValidateFindAllRequest validates a find all request.
func (v *requestValidator) ValidateFindAllRequest(req *rpc.FindAllRequest) error {
	return v.validateOwner(req.Owner)
}

// ValidateEvaluateIfRequest validates an If header evaluation request.
func (v *requestValidator) ValidateEvaluateIfRequest(req *rpc.EvaluateIfRequest) error {
	if err := v.validatePath("path", req.Path); err != nil {
		return err
	}
	if strings.TrimSpace(req.If) == "" {
		return NewValidationError("if", req.If, "if cannot be empty")
	}
	if len(req.If) > MaxIfHeaderLength {
		return NewValidationError("if", fmt.Sprintf("len:%d", len(req.If)),
			fmt.Sprintf("if length cannot exceed %d characters", MaxIfHeaderLength))
	}
	return nil
}

func (v *requestValidator) validatePath(field, path string) error {
	if path == "" {
		return NewValidationError(field, path, field+" cannot be empty")
	}
	if len(path) > MaxPathLength {
		return NewValidationError(field, fmt.Sprintf("len:%d", len(path)),
			fmt.Sprintf("%s length cannot exceed %d characters", field, MaxPathLength))
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return NewValidationError(field, path, field+" contains invalid characters (null, newline)")
	}
	return nil
}

func (v *requestValidator) validateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return NewValidationError("lock_token", token, "lock_token cannot be empty")
	}
	if len(token) > MaxTokenLength {
		return NewValidationError("lock_token", fmt.Sprintf("len:%d", len(token)),
			fmt.Sprintf("lock_token length cannot exceed %d characters", MaxTokenLength))
	}
	return nil
}

func (v *requestValidator) validateOwner(owner string) error {
	if len(owner) > MaxOwnerLength {
		return NewValidationError("owner", fmt.Sprintf("len:%d", len(owner)),
			fmt.Sprintf("owner length cannot exceed %d characters", MaxOwnerLength))
	}
	return nil
}
