package capture

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/arplayback/internal/fsutil"
	"github.com/banshee-data/arplayback/internal/monitoring"
	"github.com/banshee-data/arplayback/internal/security"
)

// ManifestName is the file describing a capture inside its directory.
const ManifestName = "capture.json"

// DepthSourceLidar marks captures whose depth came from a LiDAR sensor.
const DepthSourceLidar = "lidar"

// maxManifestSize bounds the manifest read (64MB covers ~100k frames).
const maxManifestSize = 64 * 1024 * 1024

type manifestResolution struct {
	W int `json:"w"`
	H int `json:"h"`
}

type manifestLocation struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Accuracy          float64 `json:"accuracy"`
	Altitude          float64 `json:"altitude"`
	Heading           float64 `json:"heading"`
	HeadingAccuracy   float64 `json:"heading_accuracy"`
	PositionTimestamp float64 `json:"position_timestamp"`
	HeadingTimestamp  float64 `json:"heading_timestamp"`
}

type manifestFrame struct {
	Sequence        int               `json:"sequence"`
	Image           string            `json:"image,omitempty"`
	Depth           string            `json:"depth,omitempty"`
	DepthConfidence string            `json:"depth_confidence,omitempty"`
	Exposure        float64           `json:"exposure"`
	Pose            []float64         `json:"pose"`
	Projection      []float64         `json:"projection"`
	Intrinsics      []float64         `json:"intrinsics"`
	Resolution      []int             `json:"resolution"`
	TrackingState   int               `json:"tracking_state"`
	Location        *manifestLocation `json:"location,omitempty"`
	Timestamp       float64           `json:"timestamp"`
}

type manifest struct {
	FrameCount       int                `json:"framecount"`
	Resolution       manifestResolution `json:"resolution"`
	DepthResolution  manifestResolution `json:"depth_resolution"`
	FrameRate        int                `json:"framerate"`
	Autofocus        bool               `json:"autofocus"`
	DepthSource      string             `json:"depth_source,omitempty"`
	LocationServices bool               `json:"location_services,omitempty"`
	Compass          bool               `json:"compass,omitempty"`
	Frames           []manifestFrame    `json:"frames"`
}

// Load reads and parses the capture stored in dir. Malformed per-frame pose,
// projection, intrinsics or tracking values are recovered with a logged
// warning; structural problems (bad JSON, count mismatch, sequence disorder,
// paths escaping dir) fail the load.
func Load(fsys fsutil.FileSystem, dir string) (*Dataset, error) {
	manifestPath := filepath.Join(dir, ManifestName)

	data, err := fsutil.ReadFileLimit(fsys, manifestPath, maxManifestSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse capture manifest: %w", err)
	}

	ds := &Dataset{
		Dir:                     dir,
		FrameCount:              m.FrameCount,
		Resolution:              Resolution{Width: m.Resolution.W, Height: m.Resolution.H},
		DepthResolution:         Resolution{Width: m.DepthResolution.W, Height: m.DepthResolution.H},
		FrameRate:               m.FrameRate,
		LidarEnabled:            m.DepthSource == DepthSourceLidar,
		AutofocusEnabled:        m.Autofocus,
		LocationServicesEnabled: m.LocationServices,
		CompassEnabled:          m.Compass,
		Frames:                  make([]FrameMetadata, 0, len(m.Frames)),
	}

	for i, mf := range m.Frames {
		frame, err := parseFrame(dir, ds.Resolution, mf)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if frame.Location != nil {
			ds.LocationServicesEnabled = true
			if frame.Location.HasHeading() {
				ds.CompassEnabled = true
			}
		}
		ds.Frames = append(ds.Frames, frame)
	}

	if err := ds.validate(); err != nil {
		return nil, fmt.Errorf("invalid capture %s: %w", dir, err)
	}
	return ds, nil
}

func parseFrame(dir string, fallback Resolution, mf manifestFrame) (FrameMetadata, error) {
	for _, p := range []string{mf.Image, mf.Depth, mf.DepthConfidence} {
		if p == "" {
			continue
		}
		if _, err := security.ResolveWithinDirectory(dir, p); err != nil {
			return FrameMetadata{}, err
		}
	}

	f := FrameMetadata{
		Sequence:            mf.Sequence,
		ImagePath:           mf.Image,
		DepthPath:           mf.Depth,
		DepthConfidencePath: mf.DepthConfidence,
		Exposure:            mf.Exposure,
		TimestampInSeconds:  mf.Timestamp,
	}

	if pose, ok := FromColumnMajor(mf.Pose); ok {
		f.Pose = ConvertRecordedPose(pose)
	} else {
		monitoring.Warnf("capture: frame %d has a malformed pose (%d values), using invalid matrix", mf.Sequence, len(mf.Pose))
		f.Pose = InvalidMatrix()
	}

	if proj, ok := FromColumnMajor(mf.Projection); ok {
		f.ProjectionMatrix = proj
	} else {
		monitoring.Warnf("capture: frame %d has a malformed projection matrix, using invalid matrix", mf.Sequence)
		f.ProjectionMatrix = InvalidMatrix()
	}

	res := fallback
	if len(mf.Resolution) == 2 {
		res = Resolution{Width: mf.Resolution[0], Height: mf.Resolution[1]}
	}
	f.Intrinsics.Resolution = res
	if len(mf.Intrinsics) >= 4 {
		f.Intrinsics.FocalLength = [2]float64{mf.Intrinsics[0], mf.Intrinsics[1]}
		f.Intrinsics.PrincipalPoint = [2]float64{mf.Intrinsics[2], mf.Intrinsics[3]}
	} else {
		monitoring.Warnf("capture: frame %d has %d intrinsics values, want 5", mf.Sequence, len(mf.Intrinsics))
	}

	state, ok := TrackingStateFromCode(mf.TrackingState)
	if !ok {
		monitoring.Warnf("capture: frame %d has unknown tracking state %d", mf.Sequence, mf.TrackingState)
	}
	f.TrackingState = state

	if mf.Location != nil {
		f.Location = &Location{
			Latitude:          mf.Location.Latitude,
			Longitude:         mf.Location.Longitude,
			Accuracy:          mf.Location.Accuracy,
			Altitude:          mf.Location.Altitude,
			PositionTimestamp: mf.Location.PositionTimestamp,
			Heading:           mf.Location.Heading,
			HeadingAccuracy:   mf.Location.HeadingAccuracy,
			HeadingTimestamp:  mf.Location.HeadingTimestamp,
		}
	}

	return f, nil
}

// Write stores ds as a manifest in ds.Dir. Poses are converted back to the
// recording convention; invalid matrices are written as empty arrays.
func Write(fsys fsutil.FileSystem, ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("nil dataset")
	}
	if err := fsys.MkdirAll(ds.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}

	m := manifest{
		FrameCount:       len(ds.Frames),
		Resolution:       manifestResolution{W: ds.Resolution.Width, H: ds.Resolution.Height},
		DepthResolution:  manifestResolution{W: ds.DepthResolution.Width, H: ds.DepthResolution.Height},
		FrameRate:        ds.FrameRate,
		Autofocus:        ds.AutofocusEnabled,
		LocationServices: ds.LocationServicesEnabled,
		Compass:          ds.CompassEnabled,
		Frames:           make([]manifestFrame, 0, len(ds.Frames)),
	}
	if ds.LidarEnabled {
		m.DepthSource = DepthSourceLidar
	}

	for _, f := range ds.Frames {
		mf := manifestFrame{
			Sequence:        f.Sequence,
			Image:           f.ImagePath,
			Depth:           f.DepthPath,
			DepthConfidence: f.DepthConfidencePath,
			Exposure:        f.Exposure,
			Pose:            []float64{},
			Projection:      []float64{},
			Intrinsics: []float64{
				f.Intrinsics.FocalLength[0], f.Intrinsics.FocalLength[1],
				f.Intrinsics.PrincipalPoint[0], f.Intrinsics.PrincipalPoint[1],
				0,
			},
			Resolution:    []int{f.Intrinsics.Resolution.Width, f.Intrinsics.Resolution.Height},
			TrackingState: int(f.TrackingState),
			Timestamp:     f.TimestampInSeconds,
		}
		if f.Pose.IsFinite() {
			mf.Pose = ConvertRecordedPose(f.Pose).ColumnMajor()
		}
		if f.ProjectionMatrix.IsFinite() {
			mf.Projection = f.ProjectionMatrix.ColumnMajor()
		}
		if f.Location != nil {
			mf.Location = &manifestLocation{
				Latitude:          f.Location.Latitude,
				Longitude:         f.Location.Longitude,
				Accuracy:          f.Location.Accuracy,
				Altitude:          f.Location.Altitude,
				Heading:           f.Location.Heading,
				HeadingAccuracy:   f.Location.HeadingAccuracy,
				PositionTimestamp: f.Location.PositionTimestamp,
				HeadingTimestamp:  f.Location.HeadingTimestamp,
			}
		}
		m.Frames = append(m.Frames, mf)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal capture manifest: %w", err)
	}
	if err := fsys.WriteFile(filepath.Join(ds.Dir, ManifestName), data, 0644); err != nil {
		return fmt.Errorf("failed to write capture manifest: %w", err)
	}
	return nil
}
