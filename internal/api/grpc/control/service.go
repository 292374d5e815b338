package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "attention.v1.ControlService"

const (
	methodEnqueueAlert    = "/" + ServiceName + "/EnqueueAlert"
	methodGetStatus       = "/" + ServiceName + "/GetStatus"
	methodRespondAlert    = "/" + ServiceName + "/RespondAlert"
	methodRequestShutdown = "/" + ServiceName + "/RequestShutdown"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	EnqueueAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetStatus(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	RespondAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RequestShutdown(ctx context.Context, in *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the control service for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "EnqueueAlert", Handler: enqueueAlertHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "RespondAlert", Handler: respondAlertHandler},
		{MethodName: "RequestShutdown", Handler: requestShutdownHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "attention/v1/control.proto",
}

func enqueueAlertHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ControlServer).EnqueueAlert(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodEnqueueAlert}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).EnqueueAlert(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ControlServer).GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func respondAlertHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ControlServer).RespondAlert(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRespondAlert}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).RespondAlert(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func requestShutdownHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(ControlServer).RequestShutdown(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRequestShutdown}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).RequestShutdown(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}
