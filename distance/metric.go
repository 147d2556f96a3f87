package distance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMetric is returned for unrecognized metric names or values.
var ErrUnknownMetric = errors.New("distance: unknown metric")

// Metric represents the distance metric used for vector comparison.
type Metric uint8

const (
	// IP is the inner-product distance 1 - <a, b>.
	IP Metric = iota + 1
	// L2sq is the squared Euclidean distance.
	L2sq
	// Cos is the cosine distance.
	Cos
	// Haversine is the great-circle distance between two (lat, lon) points.
	Haversine
)

// HaversineDims is the fixed dimensionality of Haversine vectors.
const HaversineDims = 2

// minConnectivity is the smallest neighbor-list length a proximity graph can
// be built with for any metric.
const minConnectivity = 2

func (m Metric) String() string {
	switch m {
	case IP:
		return "ip"
	case L2sq:
		return "l2sq"
	case Cos:
		return "cos"
	case Haversine:
		return "haversine"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m >= IP && m <= Haversine
}

// FixedDims returns the dimensionality the metric imposes, or 0 if the
// metric accepts any dimensionality.
func (m Metric) FixedDims() int {
	if m == Haversine {
		return HaversineDims
	}
	return 0
}

// MinConnectivity returns the smallest usable connectivity for the metric.
func (m Metric) MinConnectivity() int {
	return minConnectivity
}

// Normalized reports whether vectors must be unit length before encoding.
func (m Metric) Normalized() bool {
	return m == Cos
}

// ParseMetric resolves a metric name.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ip", "dot", "inner_product":
		return IP, nil
	case "l2sq", "l2", "euclidean":
		return L2sq, nil
	case "cos", "cosine", "angular":
		return Cos, nil
	case "haversine", "geo":
		return Haversine, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}
