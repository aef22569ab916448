package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/fsutil"
	"github.com/banshee-data/arplayback/internal/security"
)

// ErrNoBuffer is returned when a frame did not record the requested buffer.
var ErrNoBuffer = errors.New("playback: frame has no such buffer")

// BufferKind names one of the per-frame files.
type BufferKind int

const (
	ImageBuffer BufferKind = iota
	DepthBuffer
	ConfidenceBuffer
)

func (k BufferKind) String() string {
	switch k {
	case ImageBuffer:
		return "image"
	case DepthBuffer:
		return "depth"
	case ConfidenceBuffer:
		return "confidence"
	default:
		return "unknown"
	}
}

// FrameCache loads frame bytes for a dataset and keeps the buffers of the
// most recently requested frame sequence. Requesting another sequence
// drops them. It is safe for concurrent use.
type FrameCache struct {
	fsys fsutil.FileSystem
	dir  string

	mu      sync.Mutex
	seq     int
	buffers map[BufferKind][]byte
	hits    int
	misses  int
}

// NewFrameCache returns a cache reading frames of ds through fsys.
func NewFrameCache(fsys fsutil.FileSystem, ds *capture.Dataset) *FrameCache {
	return &FrameCache{
		fsys: fsys,
		dir:  ds.Dir,
		seq:  -1,
	}
}

// Image returns the image bytes of f.
func (c *FrameCache) Image(f capture.FrameMetadata) ([]byte, error) {
	return c.load(f, ImageBuffer, f.ImagePath)
}

// Depth returns the depth buffer of f.
func (c *FrameCache) Depth(f capture.FrameMetadata) ([]byte, error) {
	return c.load(f, DepthBuffer, f.DepthPath)
}

// DepthConfidence returns the depth confidence buffer of f.
func (c *FrameCache) DepthConfidence(f capture.FrameMetadata) ([]byte, error) {
	return c.load(f, ConfidenceBuffer, f.DepthConfidencePath)
}

// Stats returns the number of cache hits and disk reads so far.
func (c *FrameCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *FrameCache) load(f capture.FrameMetadata, kind BufferKind, rel string) ([]byte, error) {
	if rel == "" {
		return nil, fmt.Errorf("frame %d %s: %w", f.Sequence, kind, ErrNoBuffer)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seq != f.Sequence {
		c.seq = f.Sequence
		c.buffers = make(map[BufferKind][]byte, 3)
	}
	if b, ok := c.buffers[kind]; ok {
		c.hits++
		return b, nil
	}

	path, err := security.ResolveWithinDirectory(c.dir, rel)
	if err != nil {
		return nil, fmt.Errorf("frame %d %s: %w", f.Sequence, kind, err)
	}
	b, err := c.fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d %s: %w", f.Sequence, kind, err)
	}
	c.misses++
	c.buffers[kind] = b
	return b, nil
}
