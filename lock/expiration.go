package lock

import (
	"time"

	"github.com/jathurchan/davlock/types"
)

// expirationItem tracks one lock in the expiration heap.
type expirationItem struct {
	token     types.StateToken
	expiresAt time.Time

	// Position of the item in the heap (used by heap.Interface).
	index int
}

// expirationHeap is a min-heap of expirationItems ordered by expiresAt.
// Implements heap.Interface.
type expirationHeap []*expirationItem

func (h expirationHeap) Len() int { return len(h) }

func (h expirationHeap) Less(i, j int) bool {
	return h[i].expiresAt.Before(h[j].expiresAt)
}

func (h expirationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expirationHeap) Push(x any) {
	item := x.(*expirationItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *expirationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak.
	item.index = -1 // Mark as removed.
	*h = old[:n-1]
	return item
}

// peek returns the item expiring first, or nil.
func (h expirationHeap) peek() *expirationItem {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
