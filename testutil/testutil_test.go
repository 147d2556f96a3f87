package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestUniformRangeVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformRangeVectors(8, 32)

	assert.Equal(t, 8, len(v))
	for _, x := range v[0] {
		assert.GreaterOrEqual(t, x, float32(-1.0))
		assert.Less(t, x, float32(1.0))
	}
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UnitVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	for _, vec := range v {
		var sum float32
		for _, val := range vec {
			sum += val * val
		}
		assert.InDelta(t, float32(1.0), sum, 1e-5)
	}
}

func TestGeoPoints(t *testing.T) {
	rng := NewRNG(7)

	for _, p := range rng.GeoPoints(100) {
		assert.GreaterOrEqual(t, p[0], float32(-90))
		assert.LessOrEqual(t, p[0], float32(90))
		assert.GreaterOrEqual(t, p[1], float32(-180))
		assert.Less(t, p[1], float32(180))
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformVectors(1, 10)

	rng.Reset()
	v2 := rng.UniformVectors(1, 10)

	assert.Equal(t, v1, v2)
}

func TestExactTopK(t *testing.T) {
	data := [][]float32{{0, 0}, {3, 0}, {1, 0}, {1, 0}}

	got := ExactTopK([]float32{0, 0}, data, 3, SquaredL2)

	assert.Equal(t, []SearchResult{{ID: 0, Distance: 0}, {ID: 2, Distance: 1}, {ID: 3, Distance: 1}}, got)
}

func TestReferenceDistances(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	assert.InDelta(t, 2, SquaredL2(a, b), 1e-6)
	assert.InDelta(t, 1, InnerProduct(a, b), 1e-6)
	assert.InDelta(t, 0, Cosine(a, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 1, Cosine(a, []float32{0, 0}), 1e-6)
}

func TestComputeRecall(t *testing.T) {
	truth := []SearchResult{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	assert.Equal(t, 1.0, ComputeRecall(truth, truth))
	assert.Equal(t, 0.5, ComputeRecall(truth, []SearchResult{{ID: 1}, {ID: 9}, {ID: 3}, {ID: 8}}))
	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
	assert.Equal(t, 0.0, ComputeRecall(truth, nil))
}
