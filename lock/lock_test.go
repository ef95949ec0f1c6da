package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/davlock/testutil"
	"github.com/jathurchan/davlock/types"
)

func TestLockStore_CreateGrantsFreshLock(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	req := exclusive("/docs/a.txt", false)
	req.Owner = "<href>alice</href>"
	req.Timeout = time.Minute

	l, err := s.Create(ctx, req)
	testutil.RequireNoError(t, err)

	testutil.AssertTrue(t, strings.HasPrefix(l.StateToken.String(), StateTokenScheme))
	testutil.AssertEqual(t, "/docs/a.txt", l.Path)
	testutil.AssertEqual(t, clk.Now(), l.Issued)
	testutil.AssertEqual(t, clk.Now().Add(time.Minute), l.Expiration)
	testutil.AssertNil(t, l.LastRefresh)

	found, err := s.FindActive(ctx, "/docs/a.txt", "")
	testutil.RequireNoError(t, err)
	testutil.RequireLen(t, found, 1)
	testutil.AssertEqual(t, l, found[0])
}

func TestLockStore_UUIDTokensAreUnique(t *testing.T) {
	s := NewStore()
	defer s.Close()
	ctx := context.Background()

	a := mustCreate(t, s, shared("/a", false))
	b := mustCreate(t, s, shared("/a", false))
	testutil.AssertNotEqual(t, a.StateToken, b.StateToken)
	testutil.AssertEqual(t, len(StateTokenScheme)+36, len(a.StateToken))

	all, err := s.FindAll(ctx, "")
	testutil.RequireNoError(t, err)
	testutil.AssertLen(t, all, 2)
}

func TestLockStore_Timeouts(t *testing.T) {
	s, clk := newTestStore(t, WithDefaultTimeout(2*time.Minute), WithMaxTimeout(time.Hour))
	now := clk.Now()

	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"zero uses default", 0, 2 * time.Minute},
		{"explicit", 10 * time.Second, 10 * time.Second},
		{"capped", 3 * time.Hour, time.Hour},
		{"infinite capped", types.InfiniteTimeout, time.Hour},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := shared("/t", false)
			req.Path = "/t" + string(rune('a'+i))
			req.Timeout = tt.requested
			l := mustCreate(t, s, req)
			testutil.AssertEqual(t, tt.want, l.Timeout)
			testutil.AssertEqual(t, now.Add(tt.want), l.Expiration)
		})
	}

	_, err := s.Create(context.Background(), types.LockRequest{Path: "/n", AccessType: types.AccessShared, Timeout: -time.Second})
	testutil.AssertErrorIs(t, err, ErrInvalidTimeout)
}

func TestLockStore_InvalidRequest(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Create(context.Background(), types.LockRequest{Path: "/a", AccessType: "write"})
	testutil.AssertErrorIs(t, err, ErrInvalidRequest)
	testutil.AssertErrorIs(t, err, types.ErrInvalidLockRequest)
}

func TestLockStore_ConflictRules(t *testing.T) {
	tests := []struct {
		name     string
		existing types.LockRequest
		request  types.LockRequest
		conflict bool
	}{
		{"exclusive vs exclusive same path", exclusive("/a", false), exclusive("/a", false), true},
		{"exclusive vs shared same path", exclusive("/a", false), shared("/a", false), true},
		{"shared vs exclusive same path", shared("/a", false), exclusive("/a", false), true},
		{"shared vs shared same path", shared("/a", false), shared("/a", false), false},
		{"case-insensitive paths", exclusive("/Docs/A", false), exclusive("/docs/a", false), true},

		{"recursive exclusive ancestor covers child", exclusive("/a", true), shared("/a/b", false), true},
		{"recursive shared ancestor, shared child", shared("/a", true), shared("/a/b", false), false},
		{"recursive shared ancestor, exclusive child", shared("/a", true), exclusive("/a/b", false), true},
		{"depth-0 ancestor does not cover child", exclusive("/a", false), exclusive("/a/b", false), false},

		{"recursive exclusive request over locked child", exclusive("/a/b", false), exclusive("/a", true), true},
		{"recursive exclusive request over shared child", shared("/a/b/c", false), exclusive("/a", true), true},
		{"recursive shared request over shared child", shared("/a/b", false), shared("/a", true), false},
		{"recursive shared request over exclusive child", exclusive("/a/b", false), shared("/a", true), true},
		{"depth-0 request does not cover child", exclusive("/a/b", false), exclusive("/a", false), false},
		{"root recursive covers everything", exclusive("/x/y", false), shared("/", true), true},

		{"siblings", exclusive("/a/b", true), exclusive("/a/c", true), false},
		{"name prefix is not ancestry", exclusive("/a", true), exclusive("/ab", false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			existing := mustCreate(t, s, tt.existing)

			got, err := s.Create(context.Background(), tt.request)
			if !tt.conflict {
				testutil.AssertNoError(t, err)
				return
			}
			testutil.AssertErrorIs(t, err, ErrLockConflict)

			var ce *ConflictError
			testutil.RequireTrue(t, errors.As(err, &ce))
			testutil.RequireLen(t, ce.Conflicts, 1)
			testutil.AssertEqual(t, existing.StateToken, ce.Conflicts[0].StateToken)
			testutil.AssertEqual(t, types.ActiveLock{}, got)
		})
	}
}

func TestLockStore_ConflictLeavesStoreUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, exclusive("/a", true))

	_, err := s.Create(ctx, exclusive("/a/b", false))
	testutil.AssertErrorIs(t, err, ErrLockConflict)

	all, err := s.FindAll(ctx, "")
	testutil.RequireNoError(t, err)
	testutil.AssertLen(t, all, 1)
}

func TestLockStore_ConflictListsAllConflicts(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustCreate(t, s, shared("/a", true))
	b := mustCreate(t, s, shared("/a/b", false))
	mustCreate(t, s, shared("/c", false))

	_, err := s.Create(context.Background(), exclusive("/a/b", false))
	var ce *ConflictError
	testutil.RequireTrue(t, errors.As(err, &ce))
	testutil.RequireLen(t, ce.Conflicts, 2)
	testutil.AssertEqual(t, a.StateToken, ce.Conflicts[0].StateToken)
	testutil.AssertEqual(t, b.StateToken, ce.Conflicts[1].StateToken)
	testutil.AssertContains(t, err.Error(), "/a/b is locked by")
}

func TestLockStore_ExpiredLocksDoNotConflict(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	req := exclusive("/a", false)
	req.Timeout = time.Minute
	old := mustCreate(t, s, req)

	clk.Advance(time.Minute)

	found, err := s.FindActive(ctx, "/a", "")
	testutil.RequireNoError(t, err)
	testutil.AssertEmpty(t, found, "a lock is dead at exactly its expiration")

	fresh := mustCreate(t, s, req)
	testutil.AssertNotEqual(t, old.StateToken, fresh.StateToken)

	_, err = s.Refresh(ctx, old.StateToken, "", 0)
	testutil.AssertErrorIs(t, err, ErrLockNotFound)
	testutil.AssertEqual(t, 1, s.size(), "expired lock pruned by mutation")
}

func TestLockStore_Refresh(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	req := shared("/a", false)
	req.Owner = "alice"
	req.Timeout = time.Minute
	l := mustCreate(t, s, req)

	clk.Advance(30 * time.Second)

	t.Run("zero reuses timeout", func(t *testing.T) {
		r, err := s.Refresh(ctx, l.StateToken, "alice", 0)
		testutil.RequireNoError(t, err)
		testutil.AssertEqual(t, l.StateToken, r.StateToken)
		testutil.AssertEqual(t, l.Issued, r.Issued)
		testutil.AssertEqual(t, clk.Now().Add(time.Minute), r.Expiration)
		testutil.RequireNotNil(t, r.LastRefresh)
		testutil.AssertEqual(t, clk.Now(), *r.LastRefresh)
	})

	t.Run("new timeout", func(t *testing.T) {
		r, err := s.Refresh(ctx, l.StateToken, "", 5*time.Minute)
		testutil.RequireNoError(t, err)
		testutil.AssertEqual(t, 5*time.Minute, r.Timeout)

		found, err := s.FindActive(ctx, "/a", "")
		testutil.RequireNoError(t, err)
		testutil.AssertEqual(t, r, found[0])
	})

	t.Run("owner mismatch", func(t *testing.T) {
		_, err := s.Refresh(ctx, l.StateToken, "bob", 0)
		testutil.AssertErrorIs(t, err, ErrLockOwnerMismatch)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := s.Refresh(ctx, "urn:uuid:nope", "", 0)
		testutil.AssertErrorIs(t, err, ErrLockNotFound)
	})

	t.Run("negative timeout", func(t *testing.T) {
		_, err := s.Refresh(ctx, l.StateToken, "", -time.Second)
		testutil.AssertErrorIs(t, err, ErrInvalidTimeout)
	})

	t.Run("refresh outlives original expiry", func(t *testing.T) {
		_, err := s.Refresh(ctx, l.StateToken, "", time.Minute)
		testutil.RequireNoError(t, err)
		clk.Advance(45 * time.Second)
		found, err := s.FindActive(ctx, "/a", "")
		testutil.RequireNoError(t, err)
		testutil.AssertLen(t, found, 1)
	})
}

func TestLockStore_Release(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	req := exclusive("/a", false)
	req.Owner = "alice"
	l := mustCreate(t, s, req)

	err := s.Release(ctx, l.StateToken, "bob")
	testutil.AssertErrorIs(t, err, ErrLockOwnerMismatch)

	testutil.RequireNoError(t, s.Release(ctx, l.StateToken, "alice"))
	testutil.AssertErrorIs(t, s.Release(ctx, l.StateToken, "alice"), ErrLockNotFound)

	found, err := s.FindActive(ctx, "/a", "")
	testutil.RequireNoError(t, err)
	testutil.AssertEmpty(t, found)
	testutil.AssertEmpty(t, s.byPath)
	testutil.AssertEqual(t, 0, s.expirationHeap.Len())

	mustCreate(t, s, exclusive("/a", false))
}

func TestLockStore_OwnerlessLocksMatchAnyCaller(t *testing.T) {
	s, _ := newTestStore(t)
	l := mustCreate(t, s, exclusive("/a", false))
	testutil.AssertNoError(t, s.Release(context.Background(), l.StateToken, "anyone"))
}

func TestLockStore_FindActive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	root := mustCreate(t, s, shared("/", true))
	dir := shared("/a", true)
	dir.Owner = "alice"
	a := mustCreate(t, s, dir)
	mustCreate(t, s, shared("/a/b", false))
	mustCreate(t, s, shared("/a/b/c", false))
	mustCreate(t, s, shared("/x", false))

	found, err := s.FindActive(ctx, "/a/b", "")
	testutil.RequireNoError(t, err)
	testutil.RequireLen(t, found, 3)
	testutil.AssertEqual(t, root.StateToken, found[0].StateToken)
	testutil.AssertEqual(t, a.StateToken, found[1].StateToken)
	testutil.AssertEqual(t, "/a/b", found[2].Path)

	found, err = s.FindActive(ctx, "/A/B/", "alice")
	testutil.RequireNoError(t, err)
	testutil.RequireLen(t, found, 1)
	testutil.AssertEqual(t, a.StateToken, found[0].StateToken)

	all, err := s.FindAll(ctx, "alice")
	testutil.RequireNoError(t, err)
	testutil.AssertLen(t, all, 1)
}

func TestLockStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	l := mustCreate(t, s, shared("/a", false))
	l, err := s.Refresh(ctx, l.StateToken, "", 0)
	testutil.RequireNoError(t, err)

	*l.LastRefresh = time.Time{}
	l.Path = "/elsewhere"

	found, err := s.FindActive(ctx, "/a", "")
	testutil.RequireNoError(t, err)
	testutil.RequireLen(t, found, 1)
	testutil.AssertFalse(t, found[0].LastRefresh.IsZero())
}

func TestLockStore_MaxLocks(t *testing.T) {
	s, clk := newTestStore(t, WithMaxLocks(2))
	req := shared("/a", false)
	req.Timeout = time.Minute

	mustCreate(t, s, req)
	mustCreate(t, s, req)
	_, err := s.Create(context.Background(), req)
	testutil.AssertErrorIs(t, err, ErrTooManyLocks)

	clk.Advance(time.Minute)
	mustCreate(t, s, req)
}

func TestLockStore_TokenCollision(t *testing.T) {
	s, _ := newTestStore(t, WithTokenGenerator(TokenGeneratorFunc(func() (types.StateToken, error) {
		return "urn:uuid:same", nil
	})))
	mustCreate(t, s, shared("/a", false))
	_, err := s.Create(context.Background(), shared("/b", false))
	testutil.AssertErrorIs(t, err, ErrTokenCollision)
}

func TestLockStore_CancelledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, exclusive("/a", false))
	testutil.AssertErrorIs(t, err, context.Canceled)
	_, err = s.FindActive(ctx, "/a", "")
	testutil.AssertErrorIs(t, err, context.Canceled)
	testutil.AssertEqual(t, 0, s.size())
}

func TestLockStore_CancelWhileWaiting(t *testing.T) {
	s, _ := newTestStore(t)
	s.sem <- struct{}{} // hold the store

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Create(ctx, exclusive("/a", false))
	testutil.AssertErrorIs(t, err, context.DeadlineExceeded)

	s.leave()
	testutil.AssertEqual(t, 0, s.size())
}

func TestLockStore_ConcurrentExclusiveCreate(t *testing.T) {
	s := NewStore()
	defer s.Close()

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(context.Background(), exclusive("/contended", false))
			if err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrLockConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, 1, granted)
}

func TestLockStore_Reaper(t *testing.T) {
	m := newCountingMetrics()
	s, clk := newTestStore(t, WithReapInterval(10*time.Second), WithMetrics(m))
	testutil.AssertEqual(t, 1, clk.Tickers())

	req := shared("/a", false)
	req.Timeout = 5 * time.Second
	mustCreate(t, s, req)

	clk.Advance(10 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for s.size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	testutil.AssertEqual(t, 0, s.size(), "reaper should free the expired lock")

	m.mu.Lock()
	testutil.AssertEqual(t, 1, m.expired)
	testutil.AssertEqual(t, 0, m.active)
	m.mu.Unlock()

	testutil.AssertNoError(t, s.Close())
	testutil.AssertEqual(t, 0, clk.Tickers())
	testutil.AssertNoError(t, s.Close())
}

func TestLockStore_Metrics(t *testing.T) {
	m := newCountingMetrics()
	s, _ := newTestStore(t, WithMetrics(m))
	ctx := context.Background()

	l := mustCreate(t, s, exclusive("/a", false))
	_, _ = s.Create(ctx, exclusive("/a", false))
	_, _ = s.Refresh(ctx, l.StateToken, "", 0)
	_ = s.Release(ctx, l.StateToken, "")
	_ = s.Release(ctx, l.StateToken, "")

	m.mu.Lock()
	defer m.mu.Unlock()
	testutil.AssertEqual(t, 1, m.creates[true])
	testutil.AssertEqual(t, 1, m.creates[false])
	testutil.AssertEqual(t, 1, m.conflict)
	testutil.AssertEqual(t, 1, m.refresh[true])
	testutil.AssertEqual(t, 1, m.releases[true])
	testutil.AssertEqual(t, 1, m.releases[false])
	testutil.AssertLen(t, m.holds, 1)
}

func TestAncestorKeys(t *testing.T) {
	testutil.AssertEqual(t, []string{"/"}, ancestorKeys("/"))
	testutil.AssertEqual(t, []string{"/a/b", "/a", "/"}, ancestorKeys("/a/b"))
}
