package quantization

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimension is returned when a codec is requested for a non-positive dimension.
var ErrInvalidDimension = errors.New("quantization: dimension must be positive")

// Codec converts float32 vectors to and from their stored byte form.
//
// Encode writes exactly Stride() bytes into dst; padding bytes are zeroed.
// Decode reads Stride() bytes and writes Dims() components into dst.
// Both panic if the buffers are too short, like copy-based encoders in the
// standard library; callers size them from Stride and Dims.
type Codec interface {
	Kind() Kind
	Dims() int
	Stride() int
	Encode(dst []byte, src []float32)
	Decode(dst []float32, src []byte)
}

// New returns the codec for kind and dims.
func New(kind Kind, dims int) (Codec, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dims)
	}
	base := layout{kind: kind, dims: dims, stride: kind.Stride(dims)}
	switch kind {
	case F32:
		return f32Codec{base}, nil
	case F64:
		return f64Codec{base}, nil
	case F16:
		return f16Codec{base}, nil
	case I8:
		return i8Codec{base}, nil
	case B1:
		return signCodec{base}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

type layout struct {
	kind   Kind
	dims   int
	stride int
}

func (l layout) Kind() Kind  { return l.kind }
func (l layout) Dims() int   { return l.dims }
func (l layout) Stride() int { return l.stride }

func (l layout) clearPadding(dst []byte, used int) {
	clear(dst[used:l.stride])
}

type f32Codec struct{ layout }

func (c f32Codec) Encode(dst []byte, src []float32) {
	_ = dst[c.stride-1]
	for i := 0; i < c.dims; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
	}
}

func (c f32Codec) Decode(dst []float32, src []byte) {
	for i := 0; i < c.dims; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

type f64Codec struct{ layout }

func (c f64Codec) Encode(dst []byte, src []float32) {
	_ = dst[c.stride-1]
	for i := 0; i < c.dims; i++ {
		binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(float64(src[i])))
	}
}

func (c f64Codec) Decode(dst []float32, src []byte) {
	for i := 0; i < c.dims; i++ {
		dst[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:])))
	}
}
