// Command plot-capture writes trajectory and timestamp plots for a capture
// dataset. Timestamps come from one ping-pong cycle of a looping reader, so
// the plot shows the exposed clock staying monotonic through the reversal.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/fsutil"
	"github.com/banshee-data/arplayback/internal/playback"
	"github.com/banshee-data/arplayback/internal/report"
	"github.com/banshee-data/arplayback/internal/security"
)

func main() {
	dataset := flag.String("dataset", "", "capture dataset directory")
	outDir := flag.String("out", "plots", "output directory")
	flag.Parse()

	if *dataset == "" {
		log.Fatal("-dataset is required")
	}
	if err := plotCapture(*dataset, *outDir); err != nil {
		log.Fatalf("plot-capture: %v", err)
	}
}

func plotCapture(datasetDir, outDir string) error {
	ds, err := capture.Load(fsutil.OSFileSystem{}, datasetDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	outPath := func(name string) (string, error) {
		p := filepath.Join(outDir, name)
		if err := security.ValidateOutputPath(p, []string{outDir}); err != nil {
			return "", err
		}
		return p, nil
	}

	path, err := outPath("trajectory.png")
	if err != nil {
		return err
	}
	if err := report.PlotTrajectory(ds, path); err != nil {
		return err
	}
	log.Printf("✓ Created: %s", path)

	timeline, err := pingPong(ds)
	if err != nil {
		return err
	}

	path, err = outPath("timestamps.png")
	if err != nil {
		return err
	}
	if err := report.PlotTimestamps(timeline.Samples(), path); err != nil {
		return err
	}
	log.Printf("✓ Created: %s", path)

	path, err = outPath("timeline.html")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.TimelineChart(f, timeline.Samples()); err != nil {
		return err
	}
	log.Printf("✓ Created: %s", path)
	return nil
}

// pingPong steps a looping reader from before the first frame to the last
// and back to the first.
func pingPong(ds *capture.Dataset) (*report.Timeline, error) {
	r, err := playback.NewReader(ds, playback.ReaderOptions{LoopInfinitely: true})
	if err != nil {
		return nil, err
	}
	d, err := playback.NewDriver(r, playback.DriverOptions{ManualStepping: true})
	if err != nil {
		return nil, err
	}
	timeline := report.NewTimeline(0)
	d.AddObserver(timeline)

	span := r.EndFrame() - r.StartFrame()
	for i := 0; i < 2*span+1; i++ {
		if !d.Step() {
			return nil, fmt.Errorf("reader stopped after %d steps", i)
		}
	}
	return timeline, nil
}
