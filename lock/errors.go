package lock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jathurchan/davlock/types"
)

var (
	// ErrLockConflict indicates that a live lock prevents the requested one.
	ErrLockConflict = errors.New("lock: conflicting lock exists")

	// ErrLockNotFound indicates an unknown or expired state token.
	ErrLockNotFound = errors.New("lock: lock not found")

	// ErrLockOwnerMismatch indicates that the caller's owner differs from the lock's owner.
	ErrLockOwnerMismatch = errors.New("lock: owner does not match")

	// ErrInvalidRequest indicates a malformed lock request.
	ErrInvalidRequest = errors.New("lock: invalid lock request")

	// ErrInvalidTimeout indicates a negative timeout.
	ErrInvalidTimeout = errors.New("lock: invalid timeout")

	// ErrTooManyLocks indicates that the store holds the maximum number of live locks.
	ErrTooManyLocks = errors.New("lock: too many locks")

	// ErrTokenCollision indicates that the token generator returned a token already in use.
	ErrTokenCollision = errors.New("lock: state token already in use")
)

// ConflictError lists the live locks that prevented a Create.
type ConflictError struct {
	Path      string
	Conflicts []types.ActiveLock
}

func (e *ConflictError) Error() string {
	tokens := make([]string, len(e.Conflicts))
	for i, l := range e.Conflicts {
		tokens[i] = l.StateToken.String()
	}
	return fmt.Sprintf("lock: %s is locked by %s", e.Path, strings.Join(tokens, ", "))
}

// Is reports whether target is ErrLockConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrLockConflict
}
