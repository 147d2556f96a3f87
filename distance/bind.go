package distance

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annex/quantization"
)

var (
	// ErrIncompatible is returned when a quantization kind cannot represent
	// the components a metric needs.
	ErrIncompatible = errors.New("distance: metric and quantization are incompatible")

	// ErrInvalidDimension is returned for non-positive or metric-violating dimensionality.
	ErrInvalidDimension = errors.New("distance: invalid dimension")
)

// Func computes the distance between two encoded vectors of the bound
// quantization kind. Lower is closer.
type Func func(a, b []byte) float32

// Compatible reports whether kind can be used with metric.
//
// Sign bits keep only direction, which is meaningful for cosine alone.
func Compatible(m Metric, k quantization.Kind) bool {
	if !m.Valid() || !k.Valid() {
		return false
	}
	if k == quantization.B1 {
		return m == Cos
	}
	return true
}

// Bind resolves the kernel for the metric, quantization kind and dimensionality.
func Bind(m Metric, k quantization.Kind, dims int) (Func, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMetric, uint8(m))
	}
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", quantization.ErrUnknownKind, uint8(k))
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dims)
	}
	if fd := m.FixedDims(); fd != 0 && dims != fd {
		return nil, fmt.Errorf("%w: %s requires %d dimensions, got %d", ErrInvalidDimension, m, fd, dims)
	}
	if !Compatible(m, k) {
		return nil, fmt.Errorf("%w: %s with %s", ErrIncompatible, m, k)
	}

	if m == Haversine {
		return haversineKernel(k), nil
	}

	switch k {
	case quantization.F32:
		return f32Kernel(m, dims), nil
	case quantization.F64:
		return f64Kernel(m, dims), nil
	case quantization.F16:
		return f16Kernel(m, dims), nil
	case quantization.I8:
		return i8Kernel(m, dims), nil
	default:
		return hammingKernel(dims), nil
	}
}
