// Package quantization provides the stored vector encodings of an index.
//
// Every index picks one Kind at construction time. A Codec for that kind turns
// input float32 vectors into a fixed number of bytes per vector (the stride)
// and back:
//
//   - F32: 4 bytes per dimension, exact
//   - F64: 8 bytes per dimension, exact
//   - F16: IEEE binary16, 2 bytes per dimension
//   - I8:  per-vector scaled int8 (float32 scale followed by one code per dimension)
//   - B1:  one sign bit per dimension
//
// Strides are rounded up to a multiple of four bytes so vectors stay aligned
// inside the arena and inside memory-mapped files.
//
// Encoding is deterministic. Decoding is approximate for every kind except F32
// and F64. Distance kernels in package distance operate directly on the
// encoded bytes, so Decode is only used for inspection and exact rescoring.
//
//	codec, _ := quantization.New(quantization.F16, 128)
//	buf := make([]byte, codec.Stride())
//	codec.Encode(buf, vec)
package quantization
