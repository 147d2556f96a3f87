package quantization

import (
	"encoding/binary"

	"github.com/x448/float16"
)

// f16Codec stores IEEE 754 binary16 components, little-endian.
type f16Codec struct{ layout }

func (c f16Codec) Encode(dst []byte, src []float32) {
	_ = dst[c.stride-1]
	for i := 0; i < c.dims; i++ {
		binary.LittleEndian.PutUint16(dst[i*2:], float16.Fromfloat32(src[i]).Bits())
	}
	c.clearPadding(dst, 2*c.dims)
}

func (c f16Codec) Decode(dst []float32, src []byte) {
	for i := 0; i < c.dims; i++ {
		dst[i] = float16.Frombits(binary.LittleEndian.Uint16(src[i*2:])).Float32()
	}
}
