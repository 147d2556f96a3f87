package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       uint32
	Distance float32
}

// DistanceFunc compares two raw vectors.
type DistanceFunc func(a, b []float32) float32

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return r.rand.Float32() })
}

// UniformRangeVectors generates random vectors with values in range [-1, 1).
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return r.rand.Float32()*2 - 1 })
}

// UnitVectors generates L2-normalized vectors with Gaussian direction.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	vectors := r.vectors(num, dimensions, func() float32 { return float32(r.rand.NormFloat64()) })
	for _, vec := range vectors {
		Normalize(vec)
	}
	return vectors
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	return r.UnitVectors(1, dimensions)[0]
}

// ClusteredVectors generates vectors clustered around random centroids.
// Useful for testing ANN index performance on non-uniform data.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centroids := r.UnitVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}
	return vectors
}

// GeoPoints generates (latitude, longitude) pairs in degrees, uniform over
// the sphere's surface.
func (r *RNG) GeoPoints(num int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*2)
	points := make([][]float32, num)
	for i := range num {
		p := data[i*2 : (i+1)*2]
		p[0] = float32(math.Asin(2*r.rand.Float64()-1) * 180 / math.Pi)
		p[1] = float32(r.rand.Float64()*360 - 180)
		points[i] = p
	}
	return points
}

func (r *RNG) vectors(num, dimensions int, next func() float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)
	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = next()
		}
		vectors[i] = vec
	}
	return vectors
}

// Normalize scales v to unit length. Zero vectors are left unchanged.
func Normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
}

// SquaredL2 is the reference squared Euclidean distance.
func SquaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// InnerProduct is the reference inner-product distance 1 - a·b.
func InnerProduct(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(1 - dot)
}

// Cosine is the reference cosine distance.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/math.Sqrt(na*nb))
}

// ExactTopK returns the k vectors of dataset closest to query, closest first.
// IDs are dataset positions; ties are ordered by position.
func ExactTopK(query []float32, dataset [][]float32, k int, dist DistanceFunc) []SearchResult {
	results := make([]SearchResult, len(dataset))
	for i, v := range dataset {
		results[i] = SearchResult{ID: uint32(i), Distance: dist(query, v)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[uint32]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].ID] = struct{}{}
	}

	hits := 0
	for _, r := range approximate[:k] {
		if _, ok := truthSet[r.ID]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}
