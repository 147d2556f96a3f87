package distance

import (
	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/blas/gonum"
)

var blasEngine = gonum.Implementation{}

// dotF32 is the float32 dot product used by the F32 kernels.
var dotF32 = dotF32Go

var isa = "generic"

func init() {
	switch {
	case cpuid.CPU.Has(cpuid.AVX2) && cpuid.CPU.Has(cpuid.FMA3):
		isa = "avx2+fma3"
		dotF32 = dotF32Blas
	case cpuid.CPU.Has(cpuid.ASIMD):
		isa = "asimd"
		dotF32 = dotF32Blas
	}
}

// ISA reports the instruction set the float32 kernels were dispatched to.
func ISA() string {
	return isa
}

func dotF32Blas(a, b []float32) float32 {
	return blasEngine.Sdot(len(a), a, 1, b, 1)
}

func dotF32Go(a, b []float32) float32 {
	n := len(a)
	b = b[:n]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < n; i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

func l2F32(a, b []float32) float32 {
	n := len(a)
	b = b[:n]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return (s0 + s1) + (s2 + s3)
}
