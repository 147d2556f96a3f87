package distance

import (
	"unsafe"
)

// Encoded F32 and F64 vectors are little-endian and 4-byte aligned inside the
// arena, so they are read in place.

func asF32(b []byte, n int) []float32 {
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func asF64(b []byte, n int) []float64 {
	return unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func f32Kernel(m Metric, dims int) Func {
	if m == L2sq {
		return func(a, b []byte) float32 {
			return l2F32(asF32(a, dims), asF32(b, dims))
		}
	}
	// IP and Cos share the kernel; cosine inputs are unit length.
	return func(a, b []byte) float32 {
		return 1 - dotF32(asF32(a, dims), asF32(b, dims))
	}
}

func f64Kernel(m Metric, dims int) Func {
	if m == L2sq {
		return func(a, b []byte) float32 {
			x, y := asF64(a, dims), asF64(b, dims)
			var sum float64
			for i := range x {
				d := x[i] - y[i]
				sum += d * d
			}
			return float32(sum)
		}
	}
	return func(a, b []byte) float32 {
		x, y := asF64(a, dims), asF64(b, dims)
		var sum float64
		for i := range x {
			sum += x[i] * y[i]
		}
		return float32(1 - sum)
	}
}
