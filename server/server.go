package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/lock"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/rpc"
	"github.com/jathurchan/davlock/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// davLockServer implements DavLockServer.
type davLockServer struct {
	mu    sync.Mutex
	state ServerOperationalState

	config ServerConfig

	locks lock.Store
	tags  storage.EntityTagSource

	validator   RequestValidator
	limiter     RateLimiter // nil when rate limiting is disabled
	connections ConnectionManager

	logger  logger.Logger
	metrics ServerMetrics
	clock   clock.Clock

	grpcServer *grpc.Server
	listener   net.Listener
	serveDone  chan struct{}
}

// NewDavLockServer creates a server from config. The server is not started.
func NewDavLockServer(config ServerConfig) (DavLockServer, error) {
	return newDavLockServer(config, nil)
}

func newDavLockServer(config ServerConfig, listener net.Listener) (*davLockServer, error) {
	if config.Logger == nil {
		config.Logger = logger.NewNoOpLogger()
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpServerMetrics()
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Logger.WithComponent("server")
	s := &davLockServer{
		state:     ServerStateNew,
		config:    config,
		locks:     config.Locks,
		tags:      config.Tags,
		validator: NewRequestValidator(log),
		logger:    log,
		metrics:   config.Metrics,
		clock:     config.Clock,
		listener:  listener,
		serveDone: make(chan struct{}),
	}
	s.connections = NewConnectionManager(s.metrics, log, s.clock)

	if config.EnableRateLimit {
		s.limiter = NewTokenBucketRateLimiter(config.RateLimit, config.RateLimitBurst, config.RateLimitWindow, config.Clock, log)
	}

	minClientPingInterval := max(config.KeepaliveTime/2, time.Second)
	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.loggingInterceptor,
			s.rateLimitInterceptor,
			s.timeoutInterceptor,
		),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    config.KeepaliveTime,
			Timeout: config.KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             minClientPingInterval,
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(config.MaxRequestSize),
		grpc.MaxSendMsgSize(config.MaxResponseSize),
		grpc.StatsHandler(&connectionStatsHandler{manager: s.connections}),
	)
	rpc.RegisterLockServiceServer(s.grpcServer, s)

	return s, nil
}

// Start implements DavLockServer.
func (s *davLockServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case ServerStateRunning:
		return ErrServerAlreadyStarted
	case ServerStateStopped:
		return ErrServerStopped
	}

	if s.listener == nil {
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
		if err != nil {
			s.logger.Errorw("Failed to listen", "address", s.config.ListenAddress, "error", err)
			return fmt.Errorf("server: listen on %s: %w", s.config.ListenAddress, err)
		}
		s.listener = l
	}

	addr := s.listener.Addr().String()
	listener := s.listener
	go func() {
		defer close(s.serveDone)
		if err := s.grpcServer.Serve(listener); err != nil &&
			!errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, net.ErrClosed) {
			s.logger.Errorw("gRPC server encountered an error", "address", addr, "error", err)
		}
	}()

	s.state = ServerStateRunning
	s.logger.Infow("Server started",
		"address", addr,
		"base_url", s.config.BaseURL,
		"rate_limit", s.config.EnableRateLimit)
	return nil
}

// Stop implements DavLockServer.
func (s *davLockServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case ServerStateNew:
		return ErrServerNotStarted
	case ServerStateStopped:
		return nil
	}
	s.state = ServerStateStopped

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	var err error
	select {
	case <-stopped:
	case <-ctx.Done():
		err = ErrShutdownTimeout
	case <-s.clock.After(s.config.ShutdownTimeout):
		err = ErrShutdownTimeout
	}
	if err != nil {
		s.logger.Warnw("Graceful shutdown timed out, forcing stop")
		s.grpcServer.Stop()
		<-stopped
	}
	<-s.serveDone

	s.logger.Infow("Server stopped")
	return err
}

// Addr implements DavLockServer.
func (s *davLockServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// State implements DavLockServer.
func (s *davLockServer) State() ServerOperationalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connections implements DavLockServer.
func (s *davLockServer) Connections() ConnectionManager {
	return s.connections
}
