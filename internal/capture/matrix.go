package capture

import "math"

// Matrix4 is a 4x4 transform stored row-major: m00,m01,m02,m03, m10,...
type Matrix4 [16]float64

// Identity returns the 4x4 identity matrix.
func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// InvalidMatrix returns the sentinel used when pose or projection data is
// missing or malformed. Every element is NaN so any consumer that checks
// finiteness rejects it.
func InvalidMatrix() Matrix4 {
	var m Matrix4
	for i := range m {
		m[i] = math.NaN()
	}
	return m
}

// At returns the element at row r, column c.
func (m Matrix4) At(r, c int) float64 {
	return m[r*4+c]
}

// IsFinite reports whether every element is a finite number.
func (m Matrix4) IsFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsInvalid reports whether m carries any NaN, which includes the InvalidMatrix sentinel.
func (m Matrix4) IsInvalid() bool {
	for _, v := range m {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Mul returns m·o.
func (m Matrix4) Mul(o Matrix4) Matrix4 {
	var out Matrix4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[r*4+k] * o[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return out
}

// Translation returns the translation column (m03, m13, m23).
func (m Matrix4) Translation() (x, y, z float64) {
	return m[3], m[7], m[11]
}

// FromColumnMajor builds a Matrix4 from a flattened column-major array, the
// layout capture manifests use. ok is false if v does not hold exactly 16
// finite values.
func FromColumnMajor(v []float64) (m Matrix4, ok bool) {
	if len(v) != 16 {
		return InvalidMatrix(), false
	}
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			m[r*4+c] = v[c*4+r]
		}
	}
	if !m.IsFinite() {
		return InvalidMatrix(), false
	}
	return m, true
}

// Transpose returns the transpose of m.
func (m Matrix4) Transpose() Matrix4 {
	var out Matrix4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = m[r*4+c]
		}
	}
	return out
}

// ColumnMajor flattens m into column-major order.
func (m Matrix4) ColumnMajor() []float64 {
	t := m.Transpose()
	return t[:]
}

// axisFlip is diag(1,-1,-1,1): a 180° rotation about X.
var axisFlip = [4]float64{1, -1, -1, 1}

// ConvertRecordedPose maps a camera-to-world pose from the recording
// convention (y-up world, camera looking down -z) into the playback
// convention (y-down world, camera looking down +z) by applying the flip on
// both the world and the camera side: S·P·S. The conversion is its own inverse.
func ConvertRecordedPose(p Matrix4) Matrix4 {
	var out Matrix4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = axisFlip[r] * axisFlip[c] * p[r*4+c]
		}
	}
	return out
}

// RollPose returns a camera-to-world pose that rolls the camera about its own
// viewing axis by rad radians, placed at (x, y, z).
func RollPose(rad, x, y, z float64) Matrix4 {
	c, s := math.Cos(rad), math.Sin(rad)
	return Matrix4{
		c, -s, 0, x,
		s, c, 0, y,
		0, 0, 1, z,
		0, 0, 0, 1,
	}
}

// PitchPose returns a camera-to-world pose rotated about the camera X axis.
func PitchPose(rad float64) Matrix4 {
	c, s := math.Cos(rad), math.Sin(rad)
	return Matrix4{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	}
}
