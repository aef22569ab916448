// Command gen-capture writes a synthetic capture dataset for exercising playback.
package main

import (
	"flag"
	"log"
	"math"

	"github.com/banshee-data/arplayback/internal/capture"
	"github.com/banshee-data/arplayback/internal/fsutil"
)

func main() {
	output := flag.String("o", "sample-capture", "output directory")
	frames := flag.Int("n", 120, "number of frames")
	fps := flag.Int("fps", 30, "frame rate")
	turns := flag.Float64("turns", 1, "full device rolls over the capture")
	noDepth := flag.Bool("no-depth", false, "omit depth and confidence buffers")
	noLocation := flag.Bool("no-location", false, "omit location and compass data")
	flag.Parse()

	if *frames < 1 {
		log.Fatalf("-n must be at least 1, got %d", *frames)
	}

	gen := capture.NewSyntheticGenerator(*output, *frames)
	gen.FrameRate = *fps
	gen.RollSweep = 2 * math.Pi * *turns
	gen.WithDepth = !*noDepth
	gen.WithLocation = !*noLocation

	ds, err := gen.Generate(fsutil.OSFileSystem{})
	if err != nil {
		log.Fatalf("failed to generate capture: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames, %.2fs)", ds.Dir, ds.Len(), ds.Duration())
}
