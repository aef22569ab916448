// Package orientation derives the device screen orientation from a camera
// pose by voting between four quantised "up" directions.
package orientation

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// ScreenOrientation is the screen orientation implied by a camera pose.
type ScreenOrientation int

const (
	// Unknown is returned for poses with non-finite or singular matrices.
	Unknown ScreenOrientation = iota
	LandscapeLeft
	Portrait
	LandscapeRight
	PortraitUpsideDown
)

func (o ScreenOrientation) String() string {
	switch o {
	case LandscapeLeft:
		return "landscape_left"
	case Portrait:
		return "portrait"
	case LandscapeRight:
		return "landscape_right"
	case PortraitUpsideDown:
		return "portrait_upside_down"
	default:
		return "unknown"
	}
}

// IsPortrait reports whether o is one of the two portrait orientations.
func (o ScreenOrientation) IsPortrait() bool {
	return o == Portrait || o == PortraitUpsideDown
}

// IsLandscape reports whether o is one of the two landscape orientations.
func (o ScreenOrientation) IsLandscape() bool {
	return o == LandscapeLeft || o == LandscapeRight
}

const (
	// QuantizationLevels is the number of canonical up directions, 90° apart.
	QuantizationLevels = 4

	// BlendFactor weights the new vote against the previous one. At 1.0 the
	// previous weights do not contribute; the lerp is kept so retuning it
	// changes a constant rather than the formula.
	BlendFactor = 1.0

	// flatTolerance is the image-up magnitude below which the camera is
	// treated as looking straight up or down.
	flatTolerance = 1e-6
)

// HysteresisThreshold is the weight a bucket must exceed to be selected.
const HysteresisThreshold = 1.0 / QuantizationLevels

var bucketOrientations = [QuantizationLevels]ScreenOrientation{
	LandscapeLeft,
	Portrait,
	LandscapeRight,
	PortraitUpsideDown,
}

// directions[i] = (cos(π/2 − θi), sin(π/2 − θi)) with θi = 2πi/4.
var directions = func() [QuantizationLevels]r2.Vec {
	var d [QuantizationLevels]r2.Vec
	for i := range d {
		theta := 2 * math.Pi * float64(i) / QuantizationLevels
		d[i] = r2.Vec{X: math.Cos(math.Pi/2 - theta), Y: math.Sin(math.Pi/2 - theta)}
	}
	return d
}()

// neighbourCutoff is cos(2π/4): only buckets adjacent to image-up score.
var neighbourCutoff = math.Cos(2 * math.Pi / QuantizationLevels)

// worldUp is the up reference in the tracker frame (y points down).
var worldUp = mat.NewVecDense(3, []float64{0, -1, 0})

// Classifier holds the per-bucket weights carried between calls. The zero
// value is ready to use. A Classifier is not safe for concurrent use.
type Classifier struct {
	weights [QuantizationLevels]float64
}

// FromPose classifies pose with a fresh Classifier.
func FromPose(pose [16]float64) ScreenOrientation {
	var c Classifier
	return c.Classify(pose)
}

// Weights returns the normalised weights from the most recent classification.
func (c *Classifier) Weights() [QuantizationLevels]float64 {
	return c.weights
}

// Classify maps a row-major camera-to-world pose to a screen orientation.
// Poses containing NaN or Inf, or that cannot be inverted, yield Unknown and
// leave the weights untouched.
func (c *Classifier) Classify(pose [16]float64) ScreenOrientation {
	for _, v := range pose {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Unknown
		}
	}

	var cameraFromTracker mat.Dense
	if err := cameraFromTracker.Inverse(mat.NewDense(4, 4, pose[:])); err != nil {
		return Unknown
	}

	var up mat.VecDense
	up.MulVec(cameraFromTracker.Slice(0, 3, 0, 3), worldUp)

	// Not normalised: the magnitude is carried through the dot products.
	imageUp := r2.Vec{X: up.AtVec(0), Y: -up.AtVec(1)}

	if r2.Norm(imageUp) < flatTolerance {
		// Screen facing the sky reads as portrait, facing the ground as upside down.
		switch z := up.AtVec(2); {
		case z < 0:
			return Portrait
		case z > 0:
			return PortraitUpsideDown
		default:
			return bucketOrientations[0]
		}
	}

	var sum float64
	for i, dir := range directions {
		w := math.Max(0, r2.Dot(imageUp, dir)-neighbourCutoff)
		c.weights[i] = lerp(c.weights[i], w, BlendFactor)
		sum += c.weights[i]
	}
	if sum <= 0 {
		return bucketOrientations[0]
	}
	for i := range c.weights {
		c.weights[i] /= sum
	}

	best := 0
	bestWeight := HysteresisThreshold
	for i, w := range c.weights {
		if w > bestWeight {
			best = i
			bestWeight = w
		}
	}
	return bucketOrientations[best]
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
