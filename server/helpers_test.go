package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/storage"
	"github.com/jathurchan/davlock/testutil"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testBaseURL = "http://example.com/dav/"

type testEnv struct {
	server  *davLockServer
	client  rpc.LockServiceClient
	store   lock.Store
	tags    *storage.MemorySource
	clock   *testutil.FakeClock
	metrics *recordingMetrics
}

func newTestEnv(t *testing.T, configure ...func(*ServerBuilder)) *testEnv {
	t.Helper()

	clk := testutil.FixedClock()
	store := lock.NewStore(lock.WithClock(clk))
	tags := storage.NewMemorySource()
	metrics := newRecordingMetrics()
	lis := bufconn.Listen(1 << 20)

	b := NewServerBuilder().
		WithListener(lis).
		WithLockStore(store).
		WithEntityTagSource(tags).
		WithBaseURL(testBaseURL).
		WithMetrics(metrics)
	for _, fn := range configure {
		fn(b)
	}
	built, err := b.Build()
	testutil.RequireNoError(t, err)
	srv := built.(*davLockServer)
	testutil.RequireNoError(t, srv.Start(context.Background()))

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	testutil.RequireNoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		_ = store.Close()
	})

	return &testEnv{
		server:  srv,
		client:  rpc.NewLockServiceClient(conn),
		store:   store,
		tags:    tags,
		clock:   clk,
		metrics: metrics,
	}
}

func (e *testEnv) mustCreate(t *testing.T, req *rpc.CreateRequest) rpc.Lock {
	t.Helper()
	resp, err := e.client.Create(context.Background(), req)
	testutil.RequireNoError(t, err, "create %+v", req)
	return resp.Lock
}

// assertStatus checks the code and the ErrorInfo reason of a status error.
func assertStatus(t *testing.T, err error, code codes.Code, reason string) *status.Status {
	t.Helper()
	testutil.RequireError(t, err)
	st, ok := status.FromError(err)
	testutil.RequireTrue(t, ok, "expected a status error, got %v", err)
	testutil.AssertEqual(t, code, st.Code(), "status code (message: %s)", st.Message())
	if reason != "" {
		testutil.AssertEqual(t, reason, statusReason(st))
	}
	return st
}

func errorInfoOf(st *status.Status) *errdetails.ErrorInfo {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info
		}
	}
	return nil
}

type recordingMetrics struct {
	mu               sync.Mutex
	requests         map[string]int
	failures         map[string]int
	validationErrors map[string]int
	clientErrors     map[string]int
	serverErrors     map[string]int
	activeConns      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		requests:         make(map[string]int),
		failures:         make(map[string]int),
		validationErrors: make(map[string]int),
		clientErrors:     make(map[string]int),
		serverErrors:     make(map[string]int),
	}
}

func (m *recordingMetrics) IncrGRPCRequest(method string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[method]++
	if !success {
		m.failures[method]++
	}
}

func (m *recordingMetrics) IncrValidationError(method string, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationErrors[method+"/"+errorType]++
}

func (m *recordingMetrics) IncrClientError(method string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientErrors[method+"/"+reason]++
}

func (m *recordingMetrics) IncrServerError(method string, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serverErrors[method+"/"+errorType]++
}

func (m *recordingMetrics) ObserveRequestLatency(string, time.Duration) {}

func (m *recordingMetrics) SetActiveConnections(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeConns = count
}

func (m *recordingMetrics) count(counter map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[key]
}
