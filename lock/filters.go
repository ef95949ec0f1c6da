package lock

import (
	"time"

	"github.com/jathurchan/davlock/types"
)

// LockFilter decides whether a live lock is included in a Find result.
type LockFilter func(types.ActiveLock) bool

var (
	// FilterAll matches every lock.
	FilterAll LockFilter = func(types.ActiveLock) bool {
		return true
	}

	// FilterByOwner matches locks owned by owner. The empty owner matches all.
	FilterByOwner = func(owner types.Owner) LockFilter {
		return func(l types.ActiveLock) bool {
			return owner.IsZero() || l.Owner == owner
		}
	}

	// FilterCovering matches locks whose scope includes path.
	FilterCovering = func(path string) LockFilter {
		return func(l types.ActiveLock) bool {
			return l.Covers(path)
		}
	}

	// FilterExpiringSoon matches locks expiring within the given duration of now.
	FilterExpiringSoon = func(now time.Time, within time.Duration) LockFilter {
		return func(l types.ActiveLock) bool {
			return l.Remaining(now) <= within
		}
	}
)

// And matches locks accepted by every filter.
func And(filters ...LockFilter) LockFilter {
	return func(l types.ActiveLock) bool {
		for _, f := range filters {
			if !f(l) {
				return false
			}
		}
		return true
	}
}
