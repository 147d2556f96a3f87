package distance

import (
	"encoding/binary"
	"math"
	"math/bits"
	"unsafe"

	"github.com/hupe1980/annex/quantization"
)

func asI8(b []byte) []int8 {
	return unsafe.Slice((*int8)(unsafe.Pointer(unsafe.SliceData(b))), len(b))
}

func i8Kernel(m Metric, dims int) Func {
	switch m {
	case L2sq:
		return func(a, b []byte) float32 {
			sa, ca := quantization.SplitI8(a, dims)
			sb, cb := quantization.SplitI8(b, dims)
			x, y := asI8(ca), asI8(cb)
			var sum float32
			for i := range x {
				d := sa*float32(x[i]) - sb*float32(y[i])
				sum += d * d
			}
			return sum
		}
	case Cos:
		// Scales cancel out, so cosine runs on the integer codes alone.
		return func(a, b []byte) float32 {
			_, ca := quantization.SplitI8(a, dims)
			_, cb := quantization.SplitI8(b, dims)
			x, y := asI8(ca), asI8(cb)
			// int64 sums: 127² × dims overflows int32 past ~133k dimensions.
			var ab, aa, bb int64
			for i := range x {
				xi, yi := int64(x[i]), int64(y[i])
				ab += xi * yi
				aa += xi * xi
				bb += yi * yi
			}
			if aa == 0 || bb == 0 {
				return 1
			}
			return float32(1 - float64(ab)/math.Sqrt(float64(aa)*float64(bb)))
		}
	default:
		return func(a, b []byte) float32 {
			sa, ca := quantization.SplitI8(a, dims)
			sb, cb := quantization.SplitI8(b, dims)
			x, y := asI8(ca), asI8(cb)
			var dot int64
			for i := range x {
				dot += int64(x[i]) * int64(y[i])
			}
			return 1 - sa*sb*float32(dot)
		}
	}
}

// hammingKernel returns the fraction of differing sign bits.
func hammingKernel(dims int) Func {
	stride := quantization.B1.Stride(dims)
	inv := 1 / float32(dims)
	return func(a, b []byte) float32 {
		a, b = a[:stride], b[:stride]
		var n int
		i := 0
		for ; i+8 <= stride; i += 8 {
			n += bits.OnesCount64(binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:]))
		}
		for ; i < stride; i++ {
			n += bits.OnesCount8(a[i] ^ b[i])
		}
		return float32(n) * inv
	}
}
