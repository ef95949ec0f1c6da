package server

import (
	"context"
	"net"
	"path"

	"github.com/jathurchan/davlock/rpc"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// loggingInterceptor is the outermost interceptor. It converts handler
// errors to status errors and records per-method metrics.
func (s *davLockServer) loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	method := path.Base(info.FullMethod)
	start := s.clock.Now()

	resp, err := handler(ctx, req)
	latency := s.clock.Since(start)
	s.metrics.ObserveRequestLatency(method, latency)

	if err == nil {
		s.metrics.IncrGRPCRequest(method, true)
		s.logger.Debugw("Request handled", "method", method, "latency", latency)
		return resp, nil
	}

	s.metrics.IncrGRPCRequest(method, false)
	stErr := ErrorToStatus(err)
	st := status.Convert(stErr)

	switch st.Code() {
	case codes.Internal, codes.Unknown:
		s.metrics.IncrServerError(method, ErrorTypeInternalError)
		s.logger.Errorw("Request failed", "method", method, "error", err)
	case codes.DeadlineExceeded:
		s.metrics.IncrServerError(method, ErrorTypeTimeout)
		s.logger.Warnw("Request timed out", "method", method, "latency", latency)
	default:
		reason := statusReason(st)
		s.metrics.IncrClientError(method, reason)
		s.logger.Debugw("Request rejected",
			"method", method,
			"code", st.Code().String(),
			"reason", reason,
			"error", err)
	}
	return nil, stErr
}

// rateLimitInterceptor rejects requests beyond the configured per-client rate.
func (s *davLockServer) rateLimitInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	if s.limiter == nil {
		return handler(ctx, req)
	}
	client := peerKey(ctx)
	if !s.limiter.Allow(client) {
		s.logger.Warnw("Request rate limited", "method", path.Base(info.FullMethod), "client", client)
		return nil, ErrRateLimited
	}
	return handler(ctx, req)
}

// peerKey identifies the calling client by host, so that the connections of
// one client share a bucket.
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// timeoutInterceptor bounds each request by RequestTimeout.
func (s *davLockServer) timeoutInterceptor(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	return handler(ctx, req)
}

// statusReason returns the ErrorInfo reason attached to st, if any.
func statusReason(st *status.Status) string {
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == rpc.ErrorDomain {
			return info.GetReason()
		}
	}
	return st.Code().String()
}
