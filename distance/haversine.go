package distance

import (
	"math"

	"github.com/hupe1980/annex/quantization"
)

const degToRad = math.Pi / 180

// HaversineAngle returns the central angle in radians between two points given as
// latitude and longitude in degrees.
func HaversineAngle(lat1, lon1, lat2, lon2 float64) float32 {
	phi1, phi2 := lat1*degToRad, lat2*degToRad
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * degToRad

	sPhi := math.Sin(dPhi / 2)
	sLambda := math.Sin(dLambda / 2)
	h := sPhi*sPhi + math.Cos(phi1)*math.Cos(phi2)*sLambda*sLambda
	if h > 1 {
		h = 1
	}
	return float32(2 * math.Asin(math.Sqrt(h)))
}

func haversineKernel(k quantization.Kind) Func {
	point := pointReader(k)
	return func(a, b []byte) float32 {
		lat1, lon1 := point(a)
		lat2, lon2 := point(b)
		return HaversineAngle(lat1, lon1, lat2, lon2)
	}
}

// pointReader extracts a (lat, lon) pair from encoded bytes without a decode buffer.
func pointReader(k quantization.Kind) func([]byte) (float64, float64) {
	switch k {
	case quantization.F64:
		return func(b []byte) (float64, float64) {
			p := asF64(b, 2)
			return p[0], p[1]
		}
	case quantization.F16:
		return func(b []byte) (float64, float64) {
			var p [2]float32
			decodeHalfPair(&p, asU16(b, 2))
			return float64(p[0]), float64(p[1])
		}
	case quantization.I8:
		return func(b []byte) (float64, float64) {
			s, c := quantization.SplitI8(b, 2)
			x := asI8(c)
			return float64(s * float32(x[0])), float64(s * float32(x[1]))
		}
	default:
		return func(b []byte) (float64, float64) {
			p := asF32(b, 2)
			return float64(p[0]), float64(p[1])
		}
	}
}
