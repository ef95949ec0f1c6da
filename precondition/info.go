// Package precondition evaluates WebDAV If headers against the entity-tag
// and lock state of the resources they name.
package precondition

import (
	"github.com/jathurchan/davlock/etag"
	"github.com/jathurchan/davlock/types"
)

// ResourceInformation is a snapshot of what a condition can test about one
// resource: its current entity tag and the live locks covering it. A nil
// ETag means the resource does not exist or has no tag.
type ResourceInformation struct {
	ETag        *etag.EntityTag
	ActiveLocks []types.ActiveLock
}

// HasETag reports whether the resource's tag matches tag under weak
// comparison.
func (r ResourceInformation) HasETag(tag etag.EntityTag) bool {
	if r.ETag == nil {
		return false
	}
	return etag.Weak.Equal(*r.ETag, tag)
}

// HasStateToken reports whether token names one of the resource's live locks.
func (r ResourceInformation) HasStateToken(token string) bool {
	for _, l := range r.ActiveLocks {
		if string(l.StateToken) == token {
			return true
		}
	}
	return false
}
