package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/orientation"
	"github.com/banshee-data/arplayback/internal/playback"
)

// Playback serves the current frame of a driven reader, reading frame bytes
// through a FrameCache.
type Playback struct {
	driver *playback.Driver
	cache  *playback.FrameCache

	mu      sync.Mutex
	started bool
	cfg     Config
}

// NewPlayback returns a provider over driver. Depth is enabled by default.
func NewPlayback(driver *playback.Driver, cache *playback.FrameCache) *Playback {
	return &Playback{
		driver: driver,
		cache:  cache,
		cfg:    Config{DepthEnabled: true},
	}
}

func (p *Playback) Kind() Kind { return KindPlayback }

// Start rewinds playback so the session begins at the start frame.
func (p *Playback) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.driver.Reset()
	p.started = true
	return nil
}

func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
}

func (p *Playback) Configure(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

func (p *Playback) state() (bool, Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started, p.cfg
}

// current returns the offset-applied current frame and the dataset
// resolutions.
func (p *Playback) current() (*capture.FrameMetadata, capture.Resolution, error) {
	started, _ := p.state()
	if !started {
		return nil, capture.Resolution{}, ErrNotStarted
	}
	var (
		f        *capture.FrameMetadata
		depthRes capture.Resolution
	)
	p.driver.WithReader(func(r *playback.Reader) {
		f = r.CurrFrame()
		depthRes = r.DepthResolution()
	})
	if f == nil {
		return nil, capture.Resolution{}, ErrNoFrame
	}
	return f, depthRes, nil
}

func (p *Playback) AcquireImage() (*Image, error) {
	f, _, err := p.current()
	if err != nil {
		return nil, err
	}
	data, err := p.cache.Image(*f)
	if err != nil {
		return nil, fmt.Errorf("acquire image: %w", err)
	}
	return &Image{
		Sequence:   f.Sequence,
		Timestamp:  f.TimestampInSeconds,
		Resolution: f.Intrinsics.Resolution,
		Intrinsics: f.Intrinsics,
		Data:       data,
	}, nil
}

func (p *Playback) AcquireDepth() (*DepthImage, error) {
	if _, cfg := p.state(); !cfg.DepthEnabled {
		return nil, ErrNoDepth
	}
	f, res, err := p.current()
	if err != nil {
		return nil, err
	}
	if !f.HasDepth() {
		return nil, ErrNoDepth
	}
	depth, err := p.cache.Depth(*f)
	if err != nil {
		return nil, fmt.Errorf("acquire depth: %w", err)
	}
	conf, err := p.cache.DepthConfidence(*f)
	if err != nil {
		return nil, fmt.Errorf("acquire depth confidence: %w", err)
	}
	return &DepthImage{
		Sequence:   f.Sequence,
		Timestamp:  f.TimestampInSeconds,
		Resolution: res,
		Depth:      depth,
		Confidence: conf,
	}, nil
}

func (p *Playback) AcquirePose() (capture.Matrix4, orientation.ScreenOrientation, error) {
	f, _, err := p.current()
	if err != nil {
		return capture.InvalidMatrix(), orientation.Unknown, err
	}
	return f.Pose, f.Orientation(), nil
}
