package storage

import (
	"context"
	"sync"

	"github.com/jathurchan/davlock/etag"
	"github.com/jathurchan/davlock/types"
)

// MemorySource is an EntityTagSource backed by a map. Paths are matched the
// same way the lock store matches them: cleaned and case-folded.
type MemorySource struct {
	mu   sync.RWMutex
	tags map[string]etag.EntityTag
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{tags: make(map[string]etag.EntityTag)}
}

// Set records tag as the entity tag of path.
func (m *MemorySource) Set(path string, tag etag.EntityTag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[types.PathKey(path)] = tag
}

// Delete forgets path.
func (m *MemorySource) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, types.PathKey(path))
}

// EntityTag implements EntityTagSource.
func (m *MemorySource) EntityTag(ctx context.Context, path string) (etag.EntityTag, bool, error) {
	if err := ctx.Err(); err != nil {
		return etag.EntityTag{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tag, ok := m.tags[types.PathKey(path)]
	return tag, ok, nil
}
