package distance

import (
	"unsafe"

	"github.com/x448/float16"
)

func asU16(b []byte, n int) []uint16 {
	return unsafe.Slice((*uint16)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func f16Kernel(m Metric, dims int) Func {
	if m == L2sq {
		return func(a, b []byte) float32 {
			x, y := asU16(a, dims), asU16(b, dims)
			var sum float32
			for i := range x {
				d := float16.Frombits(x[i]).Float32() - float16.Frombits(y[i]).Float32()
				sum += d * d
			}
			return sum
		}
	}
	return func(a, b []byte) float32 {
		x, y := asU16(a, dims), asU16(b, dims)
		var sum float32
		for i := range x {
			sum += float16.Frombits(x[i]).Float32() * float16.Frombits(y[i]).Float32()
		}
		return 1 - sum
	}
}

func decodeHalfPair(dst *[2]float32, src []uint16) {
	dst[0] = float16.Frombits(src[0]).Float32()
	dst[1] = float16.Frombits(src[1]).Float32()
}
