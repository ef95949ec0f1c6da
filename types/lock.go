package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// AccessType is the lock scope of RFC 4918: exclusive or shared.
type AccessType string

const (
	AccessExclusive AccessType = "exclusive"
	AccessShared    AccessType = "shared"
)

// IsValid reports whether a is one of the defined access types.
func (a AccessType) IsValid() bool {
	return a == AccessExclusive || a == AccessShared
}

// ShareModeWrite is the only lock type defined by RFC 4918.
const ShareModeWrite = "write"

// StateToken is the globally unique URI naming one lock instance. It is
// exchanged in the Lock-Token and If headers inside angle brackets.
type StateToken string

// String returns the bare token.
func (t StateToken) String() string { return string(t) }

// CodedURL renders the token in Coded-URL form, <token>.
func (t StateToken) CodedURL() string { return "<" + string(t) + ">" }

// Owner is the opaque owner payload supplied with a lock request, usually
// the verbatim owner XML. It is only ever compared for equality.
// The empty Owner means "no owner".
type Owner string

// IsZero reports whether no owner is set.
func (o Owner) IsZero() bool { return o == "" }

// Matches reports whether a lock owned by o may be used by caller. An unset
// owner on either side never blocks.
func (o Owner) Matches(caller Owner) bool {
	return o.IsZero() || caller.IsZero() || o == caller
}

// InfiniteTimeout requests a lock that never expires. Stores cap it to
// their configured maximum.
const InfiniteTimeout time.Duration = math.MaxInt64

// ErrInvalidLockRequest is returned by LockRequest.Validate.
var ErrInvalidLockRequest = errors.New("types: invalid lock request")

// LockRequest carries the parameters of a lock that has not been granted yet.
type LockRequest struct {
	// Path is the server-relative path of the resource to lock.
	Path string

	// Href is the canonical URI of the locked resource, echoed back in
	// lock discovery. Defaults to Path when empty.
	Href string

	// Recursive is true for Depth: infinity locks.
	Recursive bool

	AccessType AccessType
	ShareMode  string
	Owner      Owner

	// Timeout is the requested lifetime. Zero selects the store default.
	Timeout time.Duration
}

// Validate checks the request for values no store can accept.
func (r LockRequest) Validate() error {
	if !r.AccessType.IsValid() {
		return fmt.Errorf("%w: unknown access type %q", ErrInvalidLockRequest, r.AccessType)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %v", ErrInvalidLockRequest, r.Timeout)
	}
	return nil
}

// ActiveLock is a granted lock. Values are never mutated after issue; a
// refresh produces a new value with the same StateToken.
type ActiveLock struct {
	Path       string
	Href       string
	Recursive  bool
	AccessType AccessType
	ShareMode  string
	Owner      Owner
	StateToken StateToken

	// Timeout is the effective lifetime granted by the last create or refresh.
	Timeout time.Duration

	Issued      time.Time
	LastRefresh *time.Time
	Expiration  time.Time
}

// NewActiveLock issues a lock for req at now with the given token and
// effective timeout.
func NewActiveLock(req LockRequest, token StateToken, timeout time.Duration, now time.Time) ActiveLock {
	path := CleanPath(req.Path)
	href := req.Href
	if href == "" {
		href = path
	}
	shareMode := req.ShareMode
	if shareMode == "" {
		shareMode = ShareModeWrite
	}
	return ActiveLock{
		Path:       path,
		Href:       href,
		Recursive:  req.Recursive,
		AccessType: req.AccessType,
		ShareMode:  shareMode,
		Owner:      req.Owner,
		StateToken: token,
		Timeout:    timeout,
		Issued:     now,
		Expiration: now.Add(timeout),
	}
}

// Refresh returns the refreshed value of l at now. A zero timeout reuses
// l.Timeout. StateToken and Issued are carried over unchanged.
func (l ActiveLock) Refresh(now time.Time, timeout time.Duration) ActiveLock {
	if timeout == 0 {
		timeout = l.Timeout
	}
	refreshed := now
	l.Timeout = timeout
	l.LastRefresh = &refreshed
	l.Expiration = now.Add(timeout)
	return l
}

// Clone returns a copy of l that shares no memory with it.
func (l ActiveLock) Clone() ActiveLock {
	if l.LastRefresh != nil {
		t := *l.LastRefresh
		l.LastRefresh = &t
	}
	return l
}

// IsActive reports whether l is still live at now.
func (l ActiveLock) IsActive(now time.Time) bool {
	return now.Before(l.Expiration)
}

// Remaining returns how long l stays live after now, never negative.
func (l ActiveLock) Remaining(now time.Time) time.Duration {
	if d := l.Expiration.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Covers reports whether l's scope includes path.
func (l ActiveLock) Covers(path string) bool {
	return Covers(l.Path, l.Recursive, path)
}

// Overlaps reports whether l and a lock on path with the given depth cover
// each other in either direction.
func (l ActiveLock) Overlaps(path string, recursive bool) bool {
	return l.Covers(path) || Covers(path, recursive, l.Path)
}
