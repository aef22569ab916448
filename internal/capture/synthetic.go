package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/arplayback/internal/fsutil"
)

// SyntheticGenerator produces deterministic capture datasets for tests,
// demos and the gen-capture tool. The camera orbits the origin while rolling
// about its viewing axis so every screen orientation bucket is visited.
type SyntheticGenerator struct {
	Dir             string
	FrameCount      int
	FrameRate       int
	Resolution      Resolution
	DepthResolution Resolution

	WithDepth    bool
	WithLocation bool
	WithCompass  bool

	RollSweep      float64 // radians of clockwise roll across the whole capture
	OrbitRadius    float64 // metres
	StartTimestamp float64 // seconds

	// LimitedFrames is the number of leading frames reported with limited tracking.
	LimitedFrames int
}

// NewSyntheticGenerator returns a generator with sensible defaults for a
// capture of n frames stored in dir.
func NewSyntheticGenerator(dir string, n int) *SyntheticGenerator {
	return &SyntheticGenerator{
		Dir:             dir,
		FrameCount:      n,
		FrameRate:       30,
		Resolution:      Resolution{Width: 1920, Height: 1440},
		DepthResolution: Resolution{Width: 8, Height: 6},
		WithDepth:       true,
		WithLocation:    true,
		WithCompass:     true,
		RollSweep:       2 * math.Pi,
		OrbitRadius:     1.5,
		StartTimestamp:  1000.0,
		LimitedFrames:   2,
	}
}

// Dataset builds the dataset in memory without writing frame files.
func (g *SyntheticGenerator) Dataset() *Dataset {
	ds := &Dataset{
		Dir:                     g.Dir,
		FrameCount:              g.FrameCount,
		Resolution:              g.Resolution,
		DepthResolution:         g.DepthResolution,
		FrameRate:               g.FrameRate,
		LidarEnabled:            g.WithDepth,
		AutofocusEnabled:        true,
		LocationServicesEnabled: g.WithLocation,
		CompassEnabled:          g.WithLocation && g.WithCompass,
		Frames:                  make([]FrameMetadata, 0, g.FrameCount),
	}

	rate := g.FrameRate
	if rate <= 0 {
		rate = 30
	}
	intr := Intrinsics{
		FocalLength:    [2]float64{float64(g.Resolution.Width) * 0.75, float64(g.Resolution.Width) * 0.75},
		PrincipalPoint: [2]float64{float64(g.Resolution.Width) / 2, float64(g.Resolution.Height) / 2},
		Resolution:     g.Resolution,
	}
	proj := projectionFromIntrinsics(intr, 0.1, 100)

	for i := 0; i < g.FrameCount; i++ {
		frac := float64(i) / float64(g.FrameCount)
		phi := 2 * math.Pi * frac
		ts := g.StartTimestamp + float64(i)/float64(rate)

		f := FrameMetadata{
			Sequence:           i,
			ImagePath:          fmt.Sprintf("images/frame_%05d.jpg", i),
			Exposure:           1.0 / 120,
			Pose:               RollPose(-g.RollSweep*frac, g.OrbitRadius*math.Cos(phi), 0, g.OrbitRadius*math.Sin(phi)),
			ProjectionMatrix:   proj,
			Intrinsics:         intr,
			TrackingState:      TrackingNormal,
			TimestampInSeconds: ts,
		}
		if i < g.LimitedFrames {
			f.TrackingState = TrackingLimited
		}
		if g.WithDepth {
			f.DepthPath = fmt.Sprintf("depth/frame_%05d.depth", i)
			f.DepthConfidencePath = fmt.Sprintf("confidence/frame_%05d.conf", i)
		}
		if g.WithLocation {
			loc := &Location{
				Latitude:          51.5074 + 1e-6*float64(i),
				Longitude:         -0.1278,
				Accuracy:          4.5,
				Altitude:          11,
				PositionTimestamp: ts,
			}
			if g.WithCompass {
				loc.Heading = math.Mod(360*frac, 360)
				loc.HeadingAccuracy = 5
				loc.HeadingTimestamp = ts
			}
			f.Location = loc
		}
		ds.Frames = append(ds.Frames, f)
	}
	return ds
}

// Generate writes the manifest and every frame file to fsys.
func (g *SyntheticGenerator) Generate(fsys fsutil.FileSystem) (*Dataset, error) {
	ds := g.Dataset()
	for _, f := range ds.Frames {
		if err := writeFrameFile(fsys, ds.Dir, f.ImagePath, SyntheticImage(f.Sequence)); err != nil {
			return nil, err
		}
		if f.DepthPath != "" {
			if err := writeFrameFile(fsys, ds.Dir, f.DepthPath, SyntheticDepth(g.DepthResolution, f.Sequence)); err != nil {
				return nil, err
			}
		}
		if f.DepthConfidencePath != "" {
			conf := make([]byte, g.DepthResolution.Width*g.DepthResolution.Height)
			for i := range conf {
				conf[i] = 2
			}
			if err := writeFrameFile(fsys, ds.Dir, f.DepthConfidencePath, conf); err != nil {
				return nil, err
			}
		}
	}
	if err := Write(fsys, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// SyntheticImage returns the placeholder JPEG payload for a frame sequence.
func SyntheticImage(seq int) []byte {
	b := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	b = append(b, fmt.Sprintf("frame-%05d", seq)...)
	return append(b, 0xFF, 0xD9)
}

// SyntheticDepth returns a little-endian float32 depth buffer whose distance
// grows slowly with seq.
func SyntheticDepth(res Resolution, seq int) []byte {
	n := res.Width * res.Height
	buf := make([]byte, 4*n)
	d := float32(1.5 + 0.001*float64(seq))
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(d))
	}
	return buf
}

func writeFrameFile(fsys fsutil.FileSystem, dir, rel string, data []byte) error {
	path := filepath.Join(dir, rel)
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}

// projectionFromIntrinsics builds an OpenGL-style projection matrix.
func projectionFromIntrinsics(in Intrinsics, near, far float64) Matrix4 {
	w := float64(in.Resolution.Width)
	h := float64(in.Resolution.Height)
	if w == 0 || h == 0 {
		return Identity()
	}
	return Matrix4{
		2 * in.FocalLength[0] / w, 0, 1 - 2*in.PrincipalPoint[0]/w, 0,
		0, 2 * in.FocalLength[1] / h, 2*in.PrincipalPoint[1]/h - 1, 0,
		0, 0, -(far + near) / (far - near), -2 * far * near / (far - near),
		0, 0, -1, 0,
	}
}
