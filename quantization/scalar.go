package quantization

import (
	"encoding/binary"
	"math"
)

// scaleBytes is the size of the per-vector scale prefix of I8 codes.
const scaleBytes = 4

// I8 codes are symmetric: component v maps to round(v/scale) in [-127, 127]
// with scale = max|v| / 127, so every vector uses the full code range
// regardless of its magnitude.
type i8Codec struct{ layout }

func (c i8Codec) Encode(dst []byte, src []float32) {
	_ = dst[c.stride-1]

	var absMax float32
	for _, v := range src[:c.dims] {
		if a := float32(math.Abs(float64(v))); a > absMax {
			absMax = a
		}
	}

	var scale, inv float32
	if absMax > 0 {
		scale = absMax / 127
		inv = 127 / absMax
	}
	binary.LittleEndian.PutUint32(dst, math.Float32bits(scale))

	codes := dst[scaleBytes : scaleBytes+c.dims]
	for i, v := range src[:c.dims] {
		q := math.Round(float64(v * inv))
		if q > 127 {
			q = 127
		} else if q < -127 {
			q = -127
		}
		codes[i] = byte(int8(q))
	}
	c.clearPadding(dst, scaleBytes+c.dims)
}

func (c i8Codec) Decode(dst []float32, src []byte) {
	scale, codes := SplitI8(src, c.dims)
	for i := 0; i < c.dims; i++ {
		dst[i] = float32(int8(codes[i])) * scale
	}
}

// SplitI8 returns the scale and the raw code bytes of an I8 encoded vector.
// Each code byte is a two's complement int8.
func SplitI8(b []byte, dims int) (float32, []byte) {
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), b[scaleBytes : scaleBytes+dims]
}
