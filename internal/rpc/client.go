package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/arplayback/internal/playback"
)

// Client calls arplayback.Playback over cc.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in any, out any) error {
	res := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, res); err != nil {
		return err
	}
	return fromStruct(res, out)
}

func (c *Client) statusCall(ctx context.Context, method string, in any) (playback.Status, error) {
	var st playback.Status
	err := c.invoke(ctx, method, in, &st)
	return st, err
}

func (c *Client) Status(ctx context.Context) (playback.Status, error) {
	return c.statusCall(ctx, "Status", &emptypb.Empty{})
}

func (c *Client) Next(ctx context.Context) (MoveResult, error) {
	var mr MoveResult
	err := c.invoke(ctx, "Next", &emptypb.Empty{}, &mr)
	return mr, err
}

func (c *Client) Previous(ctx context.Context) (MoveResult, error) {
	var mr MoveResult
	err := c.invoke(ctx, "Previous", &emptypb.Empty{}, &mr)
	return mr, err
}

func (c *Client) Reset(ctx context.Context) (playback.Status, error) {
	return c.statusCall(ctx, "Reset", &emptypb.Empty{})
}

func (c *Client) Pause(ctx context.Context) (playback.Status, error) {
	return c.statusCall(ctx, "Pause", &emptypb.Empty{})
}

func (c *Client) Play(ctx context.Context) (playback.Status, error) {
	return c.statusCall(ctx, "Play", &emptypb.Empty{})
}

func (c *Client) SetRate(ctx context.Context, rate float64) (playback.Status, error) {
	return c.statusCall(ctx, "SetRate", wrapperspb.Double(rate))
}

func (c *Client) GetFrame(ctx context.Context, index int) (playback.FrameView, error) {
	var v playback.FrameView
	err := c.invoke(ctx, "GetFrame", wrapperspb.Int32(int32(index)), &v)
	return v, err
}

// StatusStream receives statuses from WatchFrames.
type StatusStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next status.
func (s *StatusStream) Recv() (playback.Status, error) {
	var st playback.Status
	res := new(structpb.Struct)
	if err := s.stream.RecvMsg(res); err != nil {
		return st, err
	}
	err := fromStruct(res, &st)
	return st, err
}

// WatchFrames opens a status stream. Cancel ctx to close it.
func (c *Client) WatchFrames(ctx context.Context) (*StatusStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchFrames"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &StatusStream{stream: stream}, nil
}
