// Package rpc defines the messages, codec and service descriptor of the
// davlock gRPC service.
package rpc

import (
	"time"

	"github.com/jathurchan/davlock/types"
)

// Lock is the wire form of a types.ActiveLock.
type Lock struct {
	Path           string     `json:"path"`
	Href           string     `json:"href,omitempty"`
	Recursive      bool       `json:"recursive"`
	Scope          string     `json:"scope"`
	ShareMode      string     `json:"share_mode,omitempty"`
	Owner          string     `json:"owner,omitempty"`
	StateToken     string     `json:"state_token"`
	TimeoutSeconds int64      `json:"timeout_seconds"`
	Issued         time.Time  `json:"issued"`
	LastRefresh    *time.Time `json:"last_refresh,omitempty"`
	Expiration     time.Time  `json:"expiration"`
}

// FromActiveLock converts a lock to its wire form.
func FromActiveLock(l types.ActiveLock) Lock {
	w := Lock{
		Path:           l.Path,
		Href:           l.Href,
		Recursive:      l.Recursive,
		Scope:          string(l.AccessType),
		ShareMode:      l.ShareMode,
		Owner:          string(l.Owner),
		StateToken:     string(l.StateToken),
		TimeoutSeconds: int64(l.Timeout / time.Second),
		Issued:         l.Issued,
		Expiration:     l.Expiration,
	}
	if l.LastRefresh != nil {
		t := *l.LastRefresh
		w.LastRefresh = &t
	}
	return w
}

// ActiveLock converts the wire form back to a lock value.
func (w Lock) ActiveLock() types.ActiveLock {
	l := types.ActiveLock{
		Path:       w.Path,
		Href:       w.Href,
		Recursive:  w.Recursive,
		AccessType: types.AccessType(w.Scope),
		ShareMode:  w.ShareMode,
		Owner:      types.Owner(w.Owner),
		StateToken: types.StateToken(w.StateToken),
		Timeout:    time.Duration(w.TimeoutSeconds) * time.Second,
		Issued:     w.Issued,
		Expiration: w.Expiration,
	}
	if w.LastRefresh != nil {
		t := *w.LastRefresh
		l.LastRefresh = &t
	}
	return l
}

// FromActiveLocks converts a slice of locks, never returning nil.
func FromActiveLocks(locks []types.ActiveLock) []Lock {
	out := make([]Lock, len(locks))
	for i, l := range locks {
		out[i] = FromActiveLock(l)
	}
	return out
}

// CreateRequest asks for a new lock. Depth and Timeout carry the values of
// the WebDAV Depth and Timeout headers.
type CreateRequest struct {
	Path    string `json:"path"`
	Href    string `json:"href,omitempty"`
	Depth   string `json:"depth,omitempty"`
	Scope   string `json:"scope"`
	Owner   string `json:"owner,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// CreateResponse carries the granted lock.
type CreateResponse struct {
	Lock Lock `json:"lock"`
}

// RefreshRequest extends a lock. LockToken is a Coded-URL ("<urn:uuid:...>")
// or a bare state token.
type RefreshRequest struct {
	LockToken string `json:"lock_token"`
	Owner     string `json:"owner,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
}

// RefreshResponse carries the refreshed lock.
type RefreshResponse struct {
	Lock Lock `json:"lock"`
}

// ReleaseRequest removes a lock. LockToken is a Coded-URL or a bare token.
type ReleaseRequest struct {
	LockToken string `json:"lock_token"`
	Owner     string `json:"owner,omitempty"`
}

// ReleaseResponse is empty.
type ReleaseResponse struct{}

// FindActiveRequest lists the live locks covering Path.
type FindActiveRequest struct {
	Path  string `json:"path"`
	Owner string `json:"owner,omitempty"`
}

// FindAllRequest lists every live lock.
type FindAllRequest struct {
	Owner string `json:"owner,omitempty"`
}

// LocksResponse carries a list of locks.
type LocksResponse struct {
	Locks []Lock `json:"locks"`
}

// EvaluateIfRequest evaluates an If header on behalf of a request to Path.
type EvaluateIfRequest struct {
	Path string `json:"path"`
	If   string `json:"if"`
}

// EvaluateIfResponse reports whether the header was satisfied.
type EvaluateIfResponse struct {
	Satisfied bool `json:"satisfied"`
}
