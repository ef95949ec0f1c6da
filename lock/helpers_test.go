package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jathurchan/davlock/testutil"
	"github.com/jathurchan/davlock/types"
)

// sequentialTokens issues urn:uuid-shaped tokens in a predictable order.
func sequentialTokens() TokenGenerator {
	var n atomic.Int64
	return TokenGeneratorFunc(func() (types.StateToken, error) {
		return types.StateToken(fmt.Sprintf("urn:uuid:00000000-0000-0000-0000-%012d", n.Add(1))), nil
	})
}

func newTestStore(t *testing.T, opts ...StoreOption) (*lockStore, *testutil.FakeClock) {
	t.Helper()
	clk := testutil.FixedClock()
	all := append([]StoreOption{WithClock(clk), WithTokenGenerator(sequentialTokens())}, opts...)
	s := NewStore(all...).(*lockStore)
	t.Cleanup(func() { _ = s.Close() })
	return s, clk
}

func mustCreate(t *testing.T, s Store, req types.LockRequest) types.ActiveLock {
	t.Helper()
	l, err := s.Create(context.Background(), req)
	testutil.RequireNoError(t, err, "create %+v", req)
	return l
}

func exclusive(path string, recursive bool) types.LockRequest {
	return types.LockRequest{Path: path, Recursive: recursive, AccessType: types.AccessExclusive}
}

func shared(path string, recursive bool) types.LockRequest {
	return types.LockRequest{Path: path, Recursive: recursive, AccessType: types.AccessShared}
}

// countingMetrics records calls for assertions.
type countingMetrics struct {
	mu       sync.Mutex
	creates  map[bool]int
	refresh  map[bool]int
	releases map[bool]int
	conflict int
	expired  int
	active   int
	holds    []time.Duration
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		creates:  map[bool]int{},
		refresh:  map[bool]int{},
		releases: map[bool]int{},
	}
}

func (m *countingMetrics) IncrCreateRequest(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates[success]++
}

func (m *countingMetrics) IncrRefreshRequest(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[success]++
}

func (m *countingMetrics) IncrReleaseRequest(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases[success]++
}

func (m *countingMetrics) IncrConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflict++
}

func (m *countingMetrics) IncrExpiredLocks(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired += count
}

func (m *countingMetrics) ObserveLockHoldDuration(d time.Duration, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds = append(m.holds, d)
}

func (m *countingMetrics) SetActiveLocks(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
}

// size returns the number of indexed locks, live or not yet pruned.
func (s *lockStore) size() int {
	s.sem <- struct{}{}
	defer s.leave()
	return len(s.locks)
}
