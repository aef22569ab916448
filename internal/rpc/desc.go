// Package rpc exposes playback control over gRPC. The service is declared
// by hand on protobuf well-known types, so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "arplayback.Playback"

// PlaybackServer is implemented by Service.
type PlaybackServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Next(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Previous(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Pause(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Play(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetRate(context.Context, *wrapperspb.DoubleValue) (*structpb.Struct, error)
	GetFrame(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	WatchFrames(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the MethodDesc for one request/response call.
func unary[Req any](name string, call func(PlaybackServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PlaybackServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PlaybackServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchFramesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PlaybackServer).WatchFrames(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// ServiceDesc describes arplayback.Playback for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlaybackServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", PlaybackServer.Status),
		unary("Next", PlaybackServer.Next),
		unary("Previous", PlaybackServer.Previous),
		unary("Reset", PlaybackServer.Reset),
		unary("Pause", PlaybackServer.Pause),
		unary("Play", PlaybackServer.Play),
		unary("SetRate", PlaybackServer.SetRate),
		unary("GetFrame", PlaybackServer.GetFrame),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchFrames",
			Handler:       watchFramesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "arplayback/playback.proto",
}
