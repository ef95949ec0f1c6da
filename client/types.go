package client

import (
	"github.com/jathurchan/davlock/types"
)

// CreateRequest asks for a new lock.
type CreateRequest struct {
	// Path is the resource to lock.
	Path string

	// Href is the URL reported back for the lock root. Defaults to Path.
	Href string

	// Depth is a Depth header value: "0" or "infinity". Empty means infinity.
	Depth string

	// Scope is the lock scope.
	Scope types.AccessType

	// Owner identifies the principal taking the lock.
	Owner types.Owner

	// Timeout is a Timeout header value such as "Second-600, Infinite".
	// Empty selects the server default.
	Timeout string
}

// RefreshRequest extends an existing lock.
type RefreshRequest struct {
	// LockToken is the state token, bare or as "<token>".
	LockToken string

	// Owner must match the lock owner unless empty.
	Owner types.Owner

	// Timeout is a Timeout header value. Empty selects the server default.
	Timeout string
}

// ReleaseRequest removes an existing lock.
type ReleaseRequest struct {
	// LockToken is the state token, bare or as "<token>".
	LockToken string

	// Owner must match the lock owner unless empty.
	Owner types.Owner
}

// EvaluateIfRequest asks the server to evaluate an If header for a request
// on Path.
type EvaluateIfRequest struct {
	Path string
	If   string
}
