// Package playback replays a recorded capture dataset frame by frame.
//
// A Reader is a cursor over a capture.Dataset that can move forwards and
// backwards through a clamped sub-range, optionally ping-ponging forever at
// the range edges. Whenever the cursor moves backwards a timestamp offset
// accumulates so the time exposed through CurrFrame and CurrentTimestamp
// never decreases. A Driver paces a Reader from a clock and a FrameCache
// serves the bytes of the current frame.
package playback

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/monitoring"
	"github.com/banshee-data/arplayback/internal/orientation"
)

// ErrNilDataset is returned by NewReader when no dataset is supplied.
var ErrNilDataset = errors.New("playback: nil dataset")

// ErrFrameOutOfRange is returned by GetFrame for indices outside the dataset.
var ErrFrameOutOfRange = capture.ErrFrameOutOfRange

// CursorState describes where a Reader's cursor is.
type CursorState int

const (
	// BeforeStart is the state after construction or Reset: the cursor sits
	// one before StartFrame and no frame is current.
	BeforeStart CursorState = iota
	// Playing means a frame in [StartFrame, EndFrame] is current.
	Playing
	// Finished is terminal until Reset: the range is exhausted and looping
	// is disabled.
	Finished
)

func (s CursorState) String() string {
	switch s {
	case BeforeStart:
		return "before_start"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// ReaderOptions configures a Reader. Nil frame bounds select the full range.
type ReaderOptions struct {
	LoopInfinitely bool
	StartFrame     *int
	EndFrame       *int
}

type listener struct {
	id int
	fn func()
}

// Reader is a playback cursor over a shared, read-only dataset. A Reader is
// not safe for concurrent use; Driver serialises access to the one it owns.
type Reader struct {
	ds *capture.Dataset

	current    int
	startFrame int
	endFrame   int

	loop         bool
	goingForward bool
	finished     bool

	timestampLoopOffset float64

	listeners []listener
	nextID    int
}

// NewReader returns a Reader positioned before the first frame of the
// requested range. Out-of-range bounds are clamped with a warning.
func NewReader(ds *capture.Dataset, opts ReaderOptions) (*Reader, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	n := len(ds.Frames)

	start := 0
	if opts.StartFrame != nil {
		start = *opts.StartFrame
		// The last frame cannot start a range of more than one frame.
		if start < 0 || start >= n || (n > 1 && start == n-1) {
			monitoring.Warnf("playback: start frame %d outside [0, %d), clamping to 0", start, n-1)
			start = 0
		}
	}

	end := n - 1
	if opts.EndFrame != nil {
		end = *opts.EndFrame
		if end < 0 || end <= start || end >= n {
			monitoring.Warnf("playback: end frame %d invalid for start %d and %d frames, clamping to %d", end, start, n, n-1)
			end = n - 1
		}
	}

	r := &Reader{
		ds:         ds,
		startFrame: start,
		endFrame:   end,
		loop:       opts.LoopInfinitely,
	}
	r.Reset()
	return r, nil
}

// Reset moves the cursor back before StartFrame, clears the timestamp
// offset and the finished flag, and restores forward playback. Listeners
// are not notified.
func (r *Reader) Reset() {
	r.current = r.startFrame - 1
	r.timestampLoopOffset = 0
	r.goingForward = true
	r.finished = false
}

// OnFrameChanged registers fn to be called synchronously after every
// successful cursor move, in registration order. The returned func removes it.
func (r *Reader) OnFrameChanged(fn func()) (unsubscribe func()) {
	id := r.nextID
	r.nextID++
	r.listeners = append(r.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

func (r *Reader) notify() {
	ls := append([]listener(nil), r.listeners...)
	for _, l := range ls {
		l.fn()
	}
}

// tryMoveForward advances one frame unless the range is exhausted.
func (r *Reader) tryMoveForward() bool {
	if r.current == len(r.ds.Frames)-1 || r.current >= r.endFrame {
		return false
	}
	r.current++
	r.notify()
	return true
}

// tryMoveBackward retreats one frame unless at the start of the range. The
// offset grows by twice the frame interval: once to cancel the raw timestamp
// going back and once to keep time moving forward.
func (r *Reader) tryMoveBackward() bool {
	if r.current <= 0 || r.current <= r.startFrame {
		return false
	}
	prev := r.current
	r.current--
	delta := r.ds.Frames[prev].TimestampInSeconds - r.ds.Frames[r.current].TimestampInSeconds
	r.timestampLoopOffset += 2 * delta
	r.notify()
	return true
}

func (r *Reader) move(forward bool) bool {
	if forward {
		return r.tryMoveForward()
	}
	return r.tryMoveBackward()
}

// TryMoveToNextFrame moves one frame in the current playback direction. At a
// range edge a looping reader reverses direction and retries once; a
// non-looping reader becomes Finished. Once finished it returns false until
// Reset.
func (r *Reader) TryMoveToNextFrame() bool {
	return r.advance(true)
}

// TryMoveToPreviousFrame is TryMoveToNextFrame against the current direction.
func (r *Reader) TryMoveToPreviousFrame() bool {
	return r.advance(false)
}

func (r *Reader) advance(withDirection bool) bool {
	if r.finished {
		return false
	}
	if r.move(r.goingForward == withDirection) {
		return true
	}
	if r.loop {
		r.goingForward = !r.goingForward
		if r.move(r.goingForward == withDirection) {
			return true
		}
		// A single-frame range cannot move either way.
	}
	r.finished = true
	return false
}

// State reports the explicit cursor state.
func (r *Reader) State() CursorState {
	switch {
	case r.finished:
		return Finished
	case r.current < r.startFrame:
		return BeforeStart
	default:
		return Playing
	}
}

func (r *Reader) currentFrame() (capture.FrameMetadata, bool) {
	if r.current < 0 || r.current >= len(r.ds.Frames) {
		return capture.FrameMetadata{}, false
	}
	return r.ds.Frames[r.current], true
}

func (r *Reader) framePath(rel string) string {
	if rel == "" {
		return ""
	}
	return filepath.Join(r.ds.Dir, rel)
}

// ImagePath returns the current frame's image path joined to the dataset
// directory, or "" when no frame is current.
func (r *Reader) ImagePath() string {
	f, ok := r.currentFrame()
	if !ok {
		return ""
	}
	return r.framePath(f.ImagePath)
}

// DepthPath returns the current frame's depth path, or "" when absent.
func (r *Reader) DepthPath() string {
	f, ok := r.currentFrame()
	if !ok {
		return ""
	}
	return r.framePath(f.DepthPath)
}

// DepthConfidencePath returns the current frame's confidence path, or "" when absent.
func (r *Reader) DepthConfidencePath() string {
	f, ok := r.currentFrame()
	if !ok {
		return ""
	}
	return r.framePath(f.DepthConfidencePath)
}

func (r *Reader) Resolution() capture.Resolution      { return r.ds.Resolution }
func (r *Reader) DepthResolution() capture.Resolution { return r.ds.DepthResolution }
func (r *Reader) FrameRate() int                      { return r.ds.FrameRate }
func (r *Reader) LidarEnabled() bool                  { return r.ds.LidarEnabled }
func (r *Reader) AutofocusEnabled() bool              { return r.ds.AutofocusEnabled }
func (r *Reader) LocationServicesEnabled() bool       { return r.ds.LocationServicesEnabled }
func (r *Reader) CompassEnabled() bool                { return r.ds.CompassEnabled }

// CurrentPose returns the current camera-to-world pose, or the invalid
// matrix when no frame is current.
func (r *Reader) CurrentPose() capture.Matrix4 {
	f, ok := r.currentFrame()
	if !ok {
		return capture.InvalidMatrix()
	}
	return f.Pose
}

// CurrentProjectionMatrix returns the current projection, or the invalid
// matrix when no frame is current.
func (r *Reader) CurrentProjectionMatrix() capture.Matrix4 {
	f, ok := r.currentFrame()
	if !ok {
		return capture.InvalidMatrix()
	}
	return f.ProjectionMatrix
}

func (r *Reader) CurrentIntrinsics() capture.Intrinsics {
	f, _ := r.currentFrame()
	return f.Intrinsics
}

func (r *Reader) CurrentTrackingState() capture.TrackingState {
	f, _ := r.currentFrame()
	return f.TrackingState
}

// CurrentTimestamp returns the current frame's timestamp with the loop
// offset applied, or 0 when no frame is current.
func (r *Reader) CurrentTimestamp() float64 {
	f, ok := r.currentFrame()
	if !ok {
		return 0
	}
	return f.TimestampInSeconds + r.timestampLoopOffset
}

// CurrentOrientation classifies the current pose. It is Unknown when no
// frame is current.
func (r *Reader) CurrentOrientation() orientation.ScreenOrientation {
	f, ok := r.currentFrame()
	if !ok {
		return orientation.Unknown
	}
	return f.Orientation()
}

func (r *Reader) CurrentFrameIndex() int       { return r.current }
func (r *Reader) StartFrame() int              { return r.startFrame }
func (r *Reader) EndFrame() int                { return r.endFrame }
func (r *Reader) IsFinished() bool             { return r.finished }
func (r *Reader) GoingForward() bool           { return r.goingForward }
func (r *Reader) LoopInfinitely() bool         { return r.loop }
func (r *Reader) TimestampLoopOffset() float64 { return r.timestampLoopOffset }
func (r *Reader) Dataset() *capture.Dataset    { return r.ds }
func (r *Reader) FrameCount() int              { return len(r.ds.Frames) }

// GetFrame looks up frame i directly, bypassing the cursor. The returned
// frame carries its raw timestamp.
func (r *Reader) GetFrame(i int) (capture.FrameMetadata, error) {
	f, err := r.ds.Frame(i)
	if err != nil {
		return capture.FrameMetadata{}, fmt.Errorf("get frame: %w", err)
	}
	return f, nil
}

// CurrFrame returns a copy of the current frame with the loop offset applied
// to its timestamps, or nil when no frame is current.
func (r *Reader) CurrFrame() *capture.FrameMetadata {
	if r.current < 0 {
		return nil
	}
	f, ok := r.currentFrame()
	if !ok {
		return nil
	}
	out := f.WithTimestampOffset(r.timestampLoopOffset)
	return &out
}
