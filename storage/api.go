// Package storage provides the entity-tag sources consulted when evaluating
// If header conditions.
package storage

import (
	"context"

	"github.com/jathurchan/davlock/etag"
)

// EntityTagSource reports the current entity tag of a resource.
// Implementations must be safe for concurrent use.
type EntityTagSource interface {
	// EntityTag returns the entity tag of the resource at the server-relative
	// path.
	//
	// Returns:
	//   - The tag and true if the resource exists.
	//   - A zero tag and false, with a nil error, if it does not.
	//   - ErrSourceUnavailable (wrapped) if the backend could not be queried.
	//   - context.Canceled or context.DeadlineExceeded if the context ends.
	EntityTag(ctx context.Context, path string) (etag.EntityTag, bool, error)
}
