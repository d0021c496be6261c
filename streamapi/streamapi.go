// Package streamapi defines the streamgraph gRPC control plane. Messages are
// protobuf well-known types, so no generated code is needed: events carry
// emptypb.Empty or a wrapperspb.DoubleValue, replies carry the published
// render state version or the whole state as a structpb.Struct.
package streamapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "streamgraph.v1.StreamGraph"

// Full method names.
const (
	ConnectMethod    = "/" + ServiceName + "/Connect"
	DisconnectMethod = "/" + ServiceName + "/Disconnect"
	SetRangeMethod   = "/" + ServiceName + "/SetRange"
	GetStateMethod   = "/" + ServiceName + "/GetState"
	WatchStateMethod = "/" + ServiceName + "/WatchState"
)

// StreamGraphServer is implemented by the streamgraph process.
type StreamGraphServer interface {
	// Connect emits a connection and returns the resulting state version.
	Connect(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error)
	// Disconnect emits a close and returns the resulting state version.
	Disconnect(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error)
	// SetRange moves the cursor to a percentage in [0, 100].
	SetRange(context.Context, *wrapperspb.DoubleValue) (*wrapperspb.UInt64Value, error)
	// GetState returns the latest render state.
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// WatchState streams the current render state and every newer one.
	WatchState(*emptypb.Empty, StreamGraph_WatchStateServer) error
}

// StreamGraph_WatchStateServer is the server side of WatchState.
type StreamGraph_WatchStateServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchStateServer struct {
	grpc.ServerStream
}

func (x *watchStateServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func unaryHandler[Req any, Resp any](method string, call func(StreamGraphServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StreamGraphServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StreamGraphServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchStateHandler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(StreamGraphServer).WatchState(m, &watchStateServer{stream})
}

// ServiceDesc describes the StreamGraph service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StreamGraphServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Connect",
			Handler:    unaryHandler(ConnectMethod, StreamGraphServer.Connect),
		},
		{
			MethodName: "Disconnect",
			Handler:    unaryHandler(DisconnectMethod, StreamGraphServer.Disconnect),
		},
		{
			MethodName: "SetRange",
			Handler:    unaryHandler(SetRangeMethod, StreamGraphServer.SetRange),
		},
		{
			MethodName: "GetState",
			Handler:    unaryHandler(GetStateMethod, StreamGraphServer.GetState),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchState",
			Handler:       watchStateHandler,
			ServerStreams: true,
		},
	},
	Metadata: "streamgraph/v1/streamgraph.proto",
}

// RegisterStreamGraphServer registers srv on s.
func RegisterStreamGraphServer(s grpc.ServiceRegistrar, srv StreamGraphServer) {
	s.RegisterService(&ServiceDesc, srv)
}
