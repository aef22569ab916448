// Package capture models a recorded AR capture session: the ordered frames
// with their image and depth paths, poses, intrinsics and location metadata,
// plus the manifest format they are stored in.
package capture

import (
	"errors"
	"fmt"
)

// ErrFrameOutOfRange is returned for frame lookups outside [0, FrameCount).
var ErrFrameOutOfRange = errors.New("frame index out of range")

// Dataset is a parsed capture session. It is immutable after Load and may be
// shared by any number of readers without locking.
type Dataset struct {
	// Dir is the directory frame paths are relative to.
	Dir string

	FrameCount      int
	Resolution      Resolution
	DepthResolution Resolution
	FrameRate       int

	LidarEnabled            bool
	AutofocusEnabled        bool
	LocationServicesEnabled bool
	CompassEnabled          bool

	Frames []FrameMetadata
}

// Len returns the number of frames.
func (d *Dataset) Len() int {
	return len(d.Frames)
}

// Frame returns a copy of frame i.
func (d *Dataset) Frame(i int) (FrameMetadata, error) {
	if i < 0 || i >= len(d.Frames) {
		return FrameMetadata{}, fmt.Errorf("%w: %d not in [0, %d)", ErrFrameOutOfRange, i, len(d.Frames))
	}
	return d.Frames[i], nil
}

// Duration returns the span between the first and last frame timestamps.
func (d *Dataset) Duration() float64 {
	if len(d.Frames) < 2 {
		return 0
	}
	return d.Frames[len(d.Frames)-1].TimestampInSeconds - d.Frames[0].TimestampInSeconds
}

// validate checks the invariants Load relies on.
func (d *Dataset) validate() error {
	if d.FrameCount != len(d.Frames) {
		return fmt.Errorf("framecount %d does not match %d frame records", d.FrameCount, len(d.Frames))
	}
	for i, f := range d.Frames {
		if f.Sequence != i {
			return fmt.Errorf("frame %d has sequence %d", i, f.Sequence)
		}
	}
	return nil
}
