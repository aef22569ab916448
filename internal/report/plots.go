package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/arplayback/internal/capture"
)

var (
	trajectoryColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	forwardColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	backwardColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// TrajectoryPoints returns the camera x/z positions of frames with a valid
// pose, in capture order.
func TrajectoryPoints(ds *capture.Dataset) plotter.XYs {
	if ds == nil {
		return nil
	}
	pts := make(plotter.XYs, 0, len(ds.Frames))
	for _, f := range ds.Frames {
		if f.Pose.IsInvalid() || !f.Pose.IsFinite() {
			continue
		}
		x, _, z := f.Pose.Translation()
		pts = append(pts, plotter.XY{X: x, Y: z})
	}
	return pts
}

// PlotTrajectory writes a PNG of the top-down camera path of ds to path.
func PlotTrajectory(ds *capture.Dataset, path string) error {
	pts := TrajectoryPoints(ds)
	if len(pts) == 0 {
		return fmt.Errorf("dataset has no valid poses to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Camera Trajectory (%d frames)", len(pts))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Z (m)"
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = trajectoryColor
	line.Width = vg.Points(1)
	points.Color = trajectoryColor
	points.Radius = vg.Points(1.5)
	p.Add(line, points)
	p.Legend.Add("camera", line, points)

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save trajectory plot: %w", err)
	}
	return nil
}

// PlotTimestamps writes a PNG of exposed timestamp per step, split into
// forward and backward runs so ping-pong reversals stand out.
func PlotTimestamps(samples []Sample, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	forward := make(plotter.XYs, 0, len(samples))
	backward := make(plotter.XYs, 0, len(samples))
	for _, s := range samples {
		pt := plotter.XY{X: float64(s.Seq), Y: s.Timestamp}
		if s.Forward {
			forward = append(forward, pt)
		} else {
			backward = append(backward, pt)
		}
	}

	p := plot.New()
	p.Title.Text = "Exposed Timestamps"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Timestamp (s)"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{
		{"forward", forward, forwardColor},
		{"backward", backward, backwardColor},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return err
		}
		sc.Color = series.c
		sc.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(series.name, sc)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save timestamp plot: %w", err)
	}
	return nil
}
