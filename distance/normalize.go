package distance

import "math"

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm, in which case v is left unchanged.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := dotF32(v, v)
	if norm2 == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}
