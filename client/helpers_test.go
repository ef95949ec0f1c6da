package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/server"
	"github.com/jathurchan/davlock/storage"
	"github.com/jathurchan/davlock/testutil"
	"github.com/jathurchan/davlock/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const testBaseURL = "http://example.com/dav/"

type testEnv struct {
	client LockClient
	store  lock.Store
	tags   *storage.MemorySource
	clock  *testutil.FakeClock
}

// newTestEnv starts a real server on an in-memory listener and returns a
// client connected to it.
func newTestEnv(t *testing.T, configureServer func(*server.ServerBuilder), configureClient func(*LockClientBuilder)) *testEnv {
	t.Helper()

	clk := testutil.FixedClock()
	store := lock.NewStore(lock.WithClock(clk))
	tags := storage.NewMemorySource()
	lis := bufconn.Listen(1 << 20)

	sb := server.NewServerBuilder().
		WithListener(lis).
		WithLockStore(store).
		WithEntityTagSource(tags).
		WithBaseURL(testBaseURL)
	if configureServer != nil {
		configureServer(sb)
	}
	srv, err := sb.Build()
	testutil.RequireNoError(t, err)
	testutil.RequireNoError(t, srv.Start(context.Background()))

	cb := NewLockClientBuilder([]string{"passthrough:///bufnet"}).
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if configureClient != nil {
		configureClient(cb)
	}
	c, err := cb.Build()
	testutil.RequireNoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		_ = store.Close()
	})

	return &testEnv{client: c, store: store, tags: tags, clock: clk}
}

// fakeLockClient is a LockClient driven by per-method functions.
type fakeLockClient struct {
	mu sync.Mutex

	createFunc  func(req *CreateRequest) (types.ActiveLock, error)
	refreshFunc func(req *RefreshRequest) (types.ActiveLock, error)
	releaseFunc func(req *ReleaseRequest) error

	creates      int
	refreshCount int
	releases     []ReleaseRequest
}

func (f *fakeLockClient) Create(_ context.Context, req *CreateRequest) (types.ActiveLock, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	if f.createFunc != nil {
		return f.createFunc(req)
	}
	return types.ActiveLock{Path: req.Path, Owner: req.Owner, StateToken: "urn:uuid:fake"}, nil
}

func (f *fakeLockClient) Refresh(_ context.Context, req *RefreshRequest) (types.ActiveLock, error) {
	f.mu.Lock()
	f.refreshCount++
	f.mu.Unlock()
	if f.refreshFunc != nil {
		return f.refreshFunc(req)
	}
	return types.ActiveLock{StateToken: types.StateToken(req.LockToken), Owner: req.Owner}, nil
}

func (f *fakeLockClient) Release(_ context.Context, req *ReleaseRequest) error {
	f.mu.Lock()
	f.releases = append(f.releases, *req)
	f.mu.Unlock()
	if f.releaseFunc != nil {
		return f.releaseFunc(req)
	}
	return nil
}

func (f *fakeLockClient) FindActive(context.Context, string, types.Owner) ([]types.ActiveLock, error) {
	return nil, nil
}

func (f *fakeLockClient) FindAll(context.Context, types.Owner) ([]types.ActiveLock, error) {
	return nil, nil
}

func (f *fakeLockClient) EvaluateIf(context.Context, *EvaluateIfRequest) (bool, error) {
	return false, nil
}

func (f *fakeLockClient) Metrics() Metrics { return noOpMetrics{} }

func (f *fakeLockClient) Close() error { return nil }

func (f *fakeLockClient) counts() (creates, refreshes, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.refreshCount, len(f.releases)
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met: %s", msg)
		}
		time.Sleep(time.Millisecond)
	}
}
