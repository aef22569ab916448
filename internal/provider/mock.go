package provider

import (
	"context"
	"math"
	"sync"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/orientation"
)

// Mock produces deterministic synthetic frames. Each Advance moves to the
// next frame and rolls the camera a quarter turn clockwise every
// FramesPerQuarterTurn frames.
type Mock struct {
	Resolution           capture.Resolution
	DepthResolution      capture.Resolution
	FrameRate            int
	FramesPerQuarterTurn int

	mu      sync.Mutex
	started bool
	cfg     Config
	frame   int
}

// NewMock returns a Mock with a small default geometry.
func NewMock() *Mock {
	return &Mock{
		Resolution:           capture.Resolution{Width: 640, Height: 480},
		DepthResolution:      capture.Resolution{Width: 8, Height: 6},
		FrameRate:            30,
		FramesPerQuarterTurn: 10,
		cfg:                  Config{DepthEnabled: true},
	}
}

func (m *Mock) Kind() Kind { return KindMock }

func (m *Mock) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	m.frame = 0
	return nil
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
}

func (m *Mock) Configure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Advance moves to the next synthetic frame.
func (m *Mock) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame++
}

func (m *Mock) snapshot() (int, Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return 0, Config{}, ErrNotStarted
	}
	return m.frame, m.cfg, nil
}

func (m *Mock) timestamp(frame int) float64 {
	rate := m.FrameRate
	if rate <= 0 {
		rate = 30
	}
	return float64(frame) / float64(rate)
}

func (m *Mock) AcquireImage() (*Image, error) {
	frame, _, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	w, h := float64(m.Resolution.Width), float64(m.Resolution.Height)
	return &Image{
		Sequence:   frame,
		Timestamp:  m.timestamp(frame),
		Resolution: m.Resolution,
		Intrinsics: capture.Intrinsics{
			FocalLength:    [2]float64{w, w},
			PrincipalPoint: [2]float64{w / 2, h / 2},
			Resolution:     m.Resolution,
		},
		Data: capture.SyntheticImage(frame),
	}, nil
}

func (m *Mock) AcquireDepth() (*DepthImage, error) {
	frame, cfg, err := m.snapshot()
	if err != nil {
		return nil, err
	}
	if !cfg.DepthEnabled {
		return nil, ErrNoDepth
	}
	conf := make([]byte, m.DepthResolution.Width*m.DepthResolution.Height)
	for i := range conf {
		conf[i] = 2
	}
	return &DepthImage{
		Sequence:   frame,
		Timestamp:  m.timestamp(frame),
		Resolution: m.DepthResolution,
		Depth:      capture.SyntheticDepth(m.DepthResolution, frame),
		Confidence: conf,
	}, nil
}

// AcquirePose returns the rolled pose of the current frame.
func (m *Mock) AcquirePose() (capture.Matrix4, orientation.ScreenOrientation, error) {
	frame, _, err := m.snapshot()
	if err != nil {
		return capture.InvalidMatrix(), orientation.Unknown, err
	}
	per := m.FramesPerQuarterTurn
	if per <= 0 {
		per = 1
	}
	quarter := frame / per
	pose := capture.RollPose(-float64(quarter)*math.Pi/2, 0, 0, 0)
	return pose, orientation.FromPose([16]float64(pose)), nil
}
