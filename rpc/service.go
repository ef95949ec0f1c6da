package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "davlock.LockService"

// Full method names.
const (
	MethodCreate     = "/" + ServiceName + "/Create"
	MethodRefresh    = "/" + ServiceName + "/Refresh"
	MethodRelease    = "/" + ServiceName + "/Release"
	MethodFindActive = "/" + ServiceName + "/FindActive"
	MethodFindAll    = "/" + ServiceName + "/FindAll"
	MethodEvaluateIf = "/" + ServiceName + "/EvaluateIf"
)

// LockServiceServer is the server API of the lock service.
type LockServiceServer interface {
	Create(context.Context, *CreateRequest) (*CreateResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Release(context.Context, *ReleaseRequest) (*ReleaseResponse, error)
	FindActive(context.Context, *FindActiveRequest) (*LocksResponse, error)
	FindAll(context.Context, *FindAllRequest) (*LocksResponse, error)
	EvaluateIf(context.Context, *EvaluateIfRequest) (*EvaluateIfResponse, error)
}

// UnimplementedLockServiceServer answers every method with codes.Unimplemented.
type UnimplementedLockServiceServer struct{}

func (UnimplementedLockServiceServer) Create(context.Context, *CreateRequest) (*CreateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Create not implemented")
}

func (UnimplementedLockServiceServer) Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}

func (UnimplementedLockServiceServer) Release(context.Context, *ReleaseRequest) (*ReleaseResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Release not implemented")
}

func (UnimplementedLockServiceServer) FindActive(context.Context, *FindActiveRequest) (*LocksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FindActive not implemented")
}

func (UnimplementedLockServiceServer) FindAll(context.Context, *FindAllRequest) (*LocksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method FindAll not implemented")
}

func (UnimplementedLockServiceServer) EvaluateIf(context.Context, *EvaluateIfRequest) (*EvaluateIfResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method EvaluateIf not implemented")
}

// RegisterLockServiceServer registers srv with s.
func RegisterLockServiceServer(s grpc.ServiceRegistrar, srv LockServiceServer) {
	s.RegisterService(&LockServiceDesc, srv)
}

// unaryHandler builds the grpc.MethodHandler that decodes a Req and passes it
// to call through the server's interceptor chain.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(LockServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		impl := srv.(LockServiceServer)
		if interceptor == nil {
			return call(impl, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(impl, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LockServiceDesc describes the lock service to grpc.Server.
var LockServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: unaryHandler(MethodCreate, LockServiceServer.Create)},
		{MethodName: "Refresh", Handler: unaryHandler(MethodRefresh, LockServiceServer.Refresh)},
		{MethodName: "Release", Handler: unaryHandler(MethodRelease, LockServiceServer.Release)},
		{MethodName: "FindActive", Handler: unaryHandler(MethodFindActive, LockServiceServer.FindActive)},
		{MethodName: "FindAll", Handler: unaryHandler(MethodFindAll, LockServiceServer.FindAll)},
		{MethodName: "EvaluateIf", Handler: unaryHandler(MethodEvaluateIf, LockServiceServer.EvaluateIf)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "davlock/lock_service",
}

// LockServiceClient is the client API of the lock service.
type LockServiceClient interface {
	Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*CreateResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error)
	Release(ctx context.Context, in *ReleaseRequest, opts ...grpc.CallOption) (*ReleaseResponse, error)
	FindActive(ctx context.Context, in *FindActiveRequest, opts ...grpc.CallOption) (*LocksResponse, error)
	FindAll(ctx context.Context, in *FindAllRequest, opts ...grpc.CallOption) (*LocksResponse, error)
	EvaluateIf(ctx context.Context, in *EvaluateIfRequest, opts ...grpc.CallOption) (*EvaluateIfResponse, error)
}

type lockServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLockServiceClient returns a client that sends every call with the JSON
// codec.
func NewLockServiceClient(cc grpc.ClientConnInterface) LockServiceClient {
	return &lockServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *lockServiceClient) Create(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*CreateResponse, error) {
	return invoke[CreateResponse](ctx, c.cc, MethodCreate, in, opts)
}

func (c *lockServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	return invoke[RefreshResponse](ctx, c.cc, MethodRefresh, in, opts)
}

func (c *lockServiceClient) Release(ctx context.Context, in *ReleaseRequest, opts ...grpc.CallOption) (*ReleaseResponse, error) {
	return invoke[ReleaseResponse](ctx, c.cc, MethodRelease, in, opts)
}

func (c *lockServiceClient) FindActive(ctx context.Context, in *FindActiveRequest, opts ...grpc.CallOption) (*LocksResponse, error) {
	return invoke[LocksResponse](ctx, c.cc, MethodFindActive, in, opts)
}

func (c *lockServiceClient) FindAll(ctx context.Context, in *FindAllRequest, opts ...grpc.CallOption) (*LocksResponse, error) {
	return invoke[LocksResponse](ctx, c.cc, MethodFindAll, in, opts)
}

func (c *lockServiceClient) EvaluateIf(ctx context.Context, in *EvaluateIfRequest, opts ...grpc.CallOption) (*EvaluateIfResponse, error) {
	return invoke[EvaluateIfResponse](ctx, c.cc, MethodEvaluateIf, in, opts)
}
