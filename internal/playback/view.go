package playback

import "github.com/banshee-data/arplayback/internal/capture"

// FrameView is the transport representation of one frame. Matrices are
// column-major, matching the capture manifest.
type FrameView struct {
	Index            int                `json:"index"`
	Sequence         int                `json:"sequence"`
	Timestamp        float64            `json:"timestamp"`
	Exposure         float64            `json:"exposure"`
	TrackingState    string             `json:"tracking_state"`
	Orientation      string             `json:"orientation"`
	Pose             []float64          `json:"pose"`
	ProjectionMatrix []float64          `json:"projection_matrix"`
	Intrinsics       capture.Intrinsics `json:"intrinsics"`
	ImagePath        string             `json:"image_path,omitempty"`
	DepthPath        string             `json:"depth_path,omitempty"`
	ConfidencePath   string             `json:"depth_confidence_path,omitempty"`
	Location         *capture.Location  `json:"location,omitempty"`
}

// NewFrameView builds the view of frame f at dataset index.
func NewFrameView(index int, f capture.FrameMetadata) FrameView {
	v := FrameView{
		Index:          index,
		Sequence:       f.Sequence,
		Timestamp:      f.TimestampInSeconds,
		Exposure:       f.Exposure,
		TrackingState:  f.TrackingState.String(),
		Orientation:    f.Orientation().String(),
		Intrinsics:     f.Intrinsics,
		ImagePath:      f.ImagePath,
		DepthPath:      f.DepthPath,
		ConfidencePath: f.DepthConfidencePath,
		Location:       f.Location,
	}
	// JSON cannot carry NaN or Inf, so non-finite matrices are omitted.
	if f.Pose.IsFinite() {
		v.Pose = f.Pose.ColumnMajor()
	}
	if f.ProjectionMatrix.IsFinite() {
		v.ProjectionMatrix = f.ProjectionMatrix.ColumnMajor()
	}
	return v
}

// CurrentView returns the view of the reader's current frame with the loop
// offset applied, or false before the first move.
func (r *Reader) CurrentView() (FrameView, bool) {
	f := r.CurrFrame()
	if f == nil {
		return FrameView{}, false
	}
	return NewFrameView(r.current, *f), true
}
