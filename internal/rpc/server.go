package rpc

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/playback"
	"github.com/banshee-data/arplayback/internal/timeutil"
)

var _ PlaybackServer = (*Service)(nil)

// Options configures a Service.
type Options struct {
	// WatchInterval re-sends the latest status on idle watch streams.
	// Zero disables the keepalive.
	WatchInterval time.Duration
	Clock         timeutil.Clock
}

// Service implements arplayback.Playback over a Driver.
type Service struct {
	driver        *playback.Driver
	watchInterval time.Duration
	clock         timeutil.Clock
}

func NewService(driver *playback.Driver, opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Service{
		driver:        driver,
		watchInterval: opts.WatchInterval,
		clock:         clock,
	}
}

// Register attaches the service to s.
func (svc *Service) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, svc)
}

func (svc *Service) status() (*structpb.Struct, error) {
	return statusStruct(svc.driver.Snapshot())
}

func (svc *Service) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return svc.status()
}

func (svc *Service) Next(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	moved := svc.driver.Step()
	return moveStruct(moved, svc.driver.Snapshot())
}

func (svc *Service) Previous(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	moved := svc.driver.StepBack()
	return moveStruct(moved, svc.driver.Snapshot())
}

func (svc *Service) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	svc.driver.Reset()
	return svc.status()
}

func (svc *Service) Pause(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	svc.driver.SetPaused(true)
	return svc.status()
}

func (svc *Service) Play(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	svc.driver.SetPaused(false)
	return svc.status()
}

func (svc *Service) SetRate(ctx context.Context, req *wrapperspb.DoubleValue) (*structpb.Struct, error) {
	if err := svc.driver.SetRate(req.GetValue()); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return svc.status()
}

// GetFrame looks up a frame by index without moving the cursor.
func (svc *Service) GetFrame(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	index := int(req.GetValue())
	var (
		f   capture.FrameMetadata
		err error
	)
	svc.driver.WithReader(func(r *playback.Reader) {
		f, err = r.GetFrame(index)
	})
	if errors.Is(err, playback.ErrFrameOutOfRange) {
		return nil, status.Errorf(codes.OutOfRange, "frame %d: %v", index, err)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s, err := toStruct(playback.NewFrameView(index, f))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

// WatchFrames sends the current status, then the latest status after every
// step until the client goes away.
func (svc *Service) WatchFrames(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	updates, stop := svc.driver.Watch()
	defer stop()

	log.Printf("[gRPC] WatchFrames started")
	if err := svc.send(stream, svc.driver.Snapshot()); err != nil {
		return err
	}

	var keepalive <-chan time.Time
	if svc.watchInterval > 0 {
		t := svc.clock.NewTicker(svc.watchInterval)
		defer t.Stop()
		keepalive = t.C()
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[gRPC] WatchFrames cancelled")
			return ctx.Err()
		case st := <-updates:
			if err := svc.send(stream, st); err != nil {
				return err
			}
		case <-keepalive:
			if err := svc.send(stream, svc.driver.Snapshot()); err != nil {
				return err
			}
		}
	}
}

func (svc *Service) send(stream grpc.ServerStreamingServer[structpb.Struct], st playback.Status) error {
	s, err := statusStruct(st)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(s)
}
