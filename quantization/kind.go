package quantization

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned for unrecognized quantization names or values.
var ErrUnknownKind = errors.New("quantization: unknown kind")

// Kind identifies a stored vector encoding.
type Kind uint8

const (
	// F32 stores full-precision float32 components.
	F32 Kind = iota + 1
	// F64 stores float64 components.
	F64
	// F16 stores IEEE half-precision components.
	F16
	// I8 stores per-vector scaled signed 8-bit codes.
	I8
	// B1 stores one sign bit per component.
	B1
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case F32:
		return "f32"
	case F64:
		return "f64"
	case F16:
		return "f16"
	case I8:
		return "i8"
	case B1:
		return "b1"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= F32 && k <= B1
}

// RealValued reports whether the kind preserves component magnitudes.
func (k Kind) RealValued() bool {
	return k.Valid() && k != B1
}

// Stride returns the number of bytes one encoded vector of dims components occupies.
func (k Kind) Stride(dims int) int {
	var n int
	switch k {
	case F32:
		n = 4 * dims
	case F64:
		n = 8 * dims
	case F16:
		n = 2 * dims
	case I8:
		n = scaleBytes + dims
	case B1:
		n = (dims + 7) / 8
	default:
		return 0
	}
	return align4(n)
}

// ParseKind resolves a quantization name. Matching is case-insensitive and
// the empty string selects F32. "f8" is accepted as an alias of "i8".
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "f32", "float32":
		return F32, nil
	case "f64", "float64":
		return F64, nil
	case "f16", "float16", "half":
		return F16, nil
	case "i8", "int8", "f8":
		return I8, nil
	case "b1", "bit", "binary":
		return B1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

func align4(n int) int {
	return (n + 3) &^ 3
}
