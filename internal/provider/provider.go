// Package provider exposes camera frames to consumers through one capability
// interface regardless of where the frames come from.
package provider

import (
	"context"
	"errors"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/orientation"
)

var (
	ErrNotStarted = errors.New("provider: not started")
	ErrNoFrame    = errors.New("provider: no current frame")
	ErrNoDepth    = errors.New("provider: depth not available")
)

// Kind identifies a provider variant.
type Kind int

const (
	KindPlayback Kind = iota + 1
	KindMock
)

func (k Kind) String() string {
	switch k {
	case KindPlayback:
		return "playback"
	case KindMock:
		return "mock"
	default:
		return "unknown"
	}
}

// Config holds the options consumers may change while a provider runs.
type Config struct {
	DepthEnabled bool
}

// Image is a colour frame.
type Image struct {
	Sequence   int
	Timestamp  float64
	Resolution capture.Resolution
	Intrinsics capture.Intrinsics
	Data       []byte
}

// DepthImage is a depth buffer with its per-pixel confidence.
type DepthImage struct {
	Sequence   int
	Timestamp  float64
	Resolution capture.Resolution
	Depth      []byte
	Confidence []byte
}

// Provider is implemented by every frame source.
type Provider interface {
	Kind() Kind
	Start(ctx context.Context) error
	Stop()
	Configure(cfg Config)
	AcquireImage() (*Image, error)
	AcquireDepth() (*DepthImage, error)
	AcquirePose() (capture.Matrix4, orientation.ScreenOrientation, error)
}
