package capture

import "github.com/banshee-data/arplayback/internal/orientation"

// TrackingState is the tracker's confidence for a captured frame.
type TrackingState int

const (
	TrackingNone TrackingState = iota
	TrackingLimited
	TrackingNormal
)

// TrackingStateFromCode maps the integer stored in capture manifests.
// Unknown codes map to TrackingNone.
func TrackingStateFromCode(code int) (TrackingState, bool) {
	switch TrackingState(code) {
	case TrackingNone, TrackingLimited, TrackingNormal:
		return TrackingState(code), true
	default:
		return TrackingNone, false
	}
}

func (s TrackingState) String() string {
	switch s {
	case TrackingNone:
		return "none"
	case TrackingLimited:
		return "limited"
	case TrackingNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Resolution is an integer width/height pair in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Intrinsics are the pinhole camera parameters for one frame.
type Intrinsics struct {
	FocalLength    [2]float64 `json:"focal_length"`
	PrincipalPoint [2]float64 `json:"principal_point"`
	Resolution     Resolution `json:"resolution"`
}

// Location is the optional geolocation block attached to a frame.
type Location struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Accuracy          float64 `json:"accuracy"`
	Altitude          float64 `json:"altitude"`
	PositionTimestamp float64 `json:"position_timestamp"`

	Heading          float64 `json:"heading"`
	HeadingAccuracy  float64 `json:"heading_accuracy"`
	HeadingTimestamp float64 `json:"heading_timestamp"`
}

// HasHeading reports whether the compass contributed to this fix.
func (l *Location) HasHeading() bool {
	return l != nil && l.HeadingTimestamp > 0
}

// FrameMetadata describes a single captured frame. Values are treated as
// immutable once a Dataset is loaded.
type FrameMetadata struct {
	Sequence int

	// Paths are relative to Dataset.Dir. Empty means absent.
	ImagePath           string
	DepthPath           string
	DepthConfidencePath string

	Exposure         float64
	Pose             Matrix4 // camera-to-world, playback convention
	ProjectionMatrix Matrix4
	Intrinsics       Intrinsics
	TrackingState    TrackingState
	Location         *Location

	TimestampInSeconds float64
}

// HasDepth reports whether both depth and confidence buffers were captured.
func (f FrameMetadata) HasDepth() bool {
	return f.DepthPath != "" && f.DepthConfidencePath != ""
}

// Orientation classifies the screen orientation implied by the frame pose.
// It is recomputed on every call.
func (f FrameMetadata) Orientation() orientation.ScreenOrientation {
	return orientation.FromPose([16]float64(f.Pose))
}

// WithTimestampOffset returns a copy of f with TimestampInSeconds and the
// nested location timestamps shifted by delta. f itself is not modified.
func (f FrameMetadata) WithTimestampOffset(delta float64) FrameMetadata {
	out := f
	out.TimestampInSeconds += delta
	if f.Location != nil {
		loc := *f.Location
		loc.PositionTimestamp += delta
		if loc.HeadingTimestamp > 0 {
			loc.HeadingTimestamp += delta
		}
		out.Location = &loc
	}
	return out
}
