// Package distance provides the distance kernels used by the index.
//
// Kernels operate on encoded vectors (see package quantization) and never
// decode them. Bind resolves a (metric, quantization) pair to a single Func
// once; the index then calls it for every comparison.
//
// Supported metrics:
//
//   - IP:        1 - <a, b>
//   - L2sq:      squared Euclidean distance
//   - Cos:       1 - <a, b> over unit vectors (sign-bit vectors use normalized Hamming distance)
//   - Haversine: great-circle central angle in radians between (lat, lon) pairs given in degrees
//
// Lower is always closer. All kernels are deterministic.
//
// Float32 dot products dispatch to gonum BLAS when the CPU reports SIMD
// support, otherwise to an unrolled pure Go loop. ISA reports which one is active.
package distance
