package annex

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/hupe1980/annex/distance"
	"github.com/hupe1980/annex/internal/hnsw"
	"github.com/hupe1980/annex/internal/searcher"
	"github.com/hupe1980/annex/internal/vectorstore"
	"github.com/hupe1980/annex/persistence"
	"github.com/hupe1980/annex/quantization"
)

// minGrowth is the smallest capacity Add grows an empty index to.
const minGrowth = 8

// Index is an approximate nearest-neighbor index over labeled vectors.
//
// Add, Search and their threaded variants may be called concurrently.
// Reserve, Save, Load, View, SearchExact, Stats and Close exclude all other
// operations while they run.
type Index struct {
	// mu is held shared by Add and Search and exclusively by operations that
	// replace or resize the arena.
	mu sync.RWMutex

	dims   int
	metric distance.Metric
	kind   quantization.Kind
	codec  quantization.Codec
	dist   distance.Func
	opts   options

	graph  *hnsw.Graph
	pool   *searcher.Pool
	labels *labelSet

	// reserved is the memory acquired from the resource controller.
	reserved int64
	mapped   *persistence.MappedFile
	closed   bool
}

// NewIP creates an inner-product index. Vectors are compared by 1 - <a, b>.
func NewIP(dims int, quant string, connectivity, expansionAdd, expansionSearch int, opts ...Option) (*Index, error) {
	return newIndex(distance.IP, dims, quant, connectivity, expansionAdd, expansionSearch, 0, opts)
}

// NewL2sq creates a squared Euclidean index.
func NewL2sq(dims int, quant string, connectivity, expansionAdd, expansionSearch int, opts ...Option) (*Index, error) {
	return newIndex(distance.L2sq, dims, quant, connectivity, expansionAdd, expansionSearch, 0, opts)
}

// NewCos creates a cosine index. Vectors are normalized before they are
// stored, so "b1" sign quantization is available.
func NewCos(dims int, quant string, connectivity, expansionAdd, expansionSearch int, opts ...Option) (*Index, error) {
	return newIndex(distance.Cos, dims, quant, connectivity, expansionAdd, expansionSearch, 0, opts)
}

// NewHaversine creates a great-circle index over (latitude, longitude)
// pairs in degrees. Distances are central angles in radians.
func NewHaversine(quant string, connectivity, expansionAdd, expansionSearch int, opts ...Option) (*Index, error) {
	return newIndex(distance.Haversine, distance.HaversineDims, quant, connectivity, expansionAdd, expansionSearch, 0, opts)
}

// New creates an index from a declarative configuration. Options are
// applied after the configuration's own settings.
func New(cfg Config, opts ...Option) (*Index, error) {
	metric, err := distance.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, &ConfigError{Field: "metric", Value: cfg.Metric, Reason: "unknown metric", cause: err}
	}
	dims := cfg.Dimensions
	if metric.FixedDims() != 0 && dims == 0 {
		dims = metric.FixedDims()
	}
	all := append(cfg.options(), opts...)
	return newIndex(metric, dims, cfg.Quantization, cfg.Connectivity, cfg.ExpansionAdd, cfg.ExpansionSearch, cfg.Capacity, all)
}

func newIndex(metric distance.Metric, dims int, quant string, connectivity, expansionAdd, expansionSearch, capacity int, optFns []Option) (*Index, error) {
	o := applyOptions(optFns)

	if fixed := metric.FixedDims(); fixed != 0 && dims != fixed {
		return nil, newConfigError("dimensions", dims, metric.String()+" requires 2 dimensions")
	}
	if dims <= 0 {
		return nil, newConfigError("dimensions", dims, "must be positive")
	}

	kind, err := quantization.ParseKind(quant)
	if err != nil {
		return nil, &ConfigError{Field: "quantization", Value: quant, Reason: "unknown quantization", cause: err}
	}
	if !distance.Compatible(metric, kind) {
		return nil, newConfigError("quantization", quant, "not supported by the "+metric.String()+" metric")
	}

	if connectivity == 0 {
		connectivity = DefaultConnectivity
	}
	if connectivity < metric.MinConnectivity() || connectivity > MaxConnectivity {
		return nil, newConfigError("connectivity", connectivity, "out of range")
	}
	if expansionAdd == 0 {
		expansionAdd = hnsw.DefaultEF
	}
	if expansionSearch == 0 {
		expansionSearch = hnsw.DefaultEFSearch
	}
	if expansionAdd < 0 {
		return nil, newConfigError("expansion_add", expansionAdd, "must not be negative")
	}
	if expansionSearch < 0 {
		return nil, newConfigError("expansion_search", expansionSearch, "must not be negative")
	}
	if o.maxThreads <= 0 {
		return nil, newConfigError("max_threads", o.maxThreads, "must be positive")
	}
	if capacity < 0 {
		return nil, newConfigError("capacity", capacity, "must not be negative")
	}

	codec, err := quantization.New(kind, dims)
	if err != nil {
		return nil, translateError(err)
	}
	dist, err := distance.Bind(metric, kind, dims)
	if err != nil {
		return nil, translateError(err)
	}

	idx := &Index{
		dims:   dims,
		metric: metric,
		kind:   kind,
		codec:  codec,
		dist:   dist,
		opts:   o,
		labels: newLabelSet(),
	}
	idx.opts.logger = o.logger.WithIndex(metric.String(), kind.String(), dims)

	store, err := vectorstore.New(codec.Stride(), connectivity, 0)
	if err != nil {
		return nil, translateError(err)
	}
	if idx.graph, err = idx.newGraph(store, expansionAdd, expansionSearch); err != nil {
		return nil, translateError(err)
	}
	idx.pool = searcher.NewPool(o.maxThreads, 0, codec.Stride(), dims)

	idx.opts.logger.Debug("index created",
		"connectivity", connectivity,
		"expansion_add", expansionAdd,
		"expansion_search", expansionSearch,
		"kernel", distance.ISA(),
	)

	if capacity > 0 {
		if err := idx.Reserve(capacity); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *Index) newGraph(store *vectorstore.Store, ef, efSearch int) (*hnsw.Graph, error) {
	return hnsw.New(store, idx.dist, func(o *hnsw.Options) {
		o.EF = ef
		o.EFSearch = efSearch
		o.Seed = idx.opts.seed
	})
}

// Dimensions returns the vector dimensionality.
func (idx *Index) Dimensions() int { return idx.dims }

// Metric returns the distance metric.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// Quantization returns the stored vector encoding.
func (idx *Index) Quantization() quantization.Kind { return idx.kind }

// Connectivity returns M, the upper-layer neighbor-list width. Layer 0
// holds up to 2M neighbors.
func (idx *Index) Connectivity() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Connectivity()
}

// ExpansionAdd returns the candidate-list width used while inserting.
func (idx *Index) ExpansionAdd() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.EF()
}

// ExpansionSearch returns the default candidate-list width used while
// searching.
func (idx *Index) ExpansionSearch() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.EFSearch()
}

// SetExpansionSearch changes the candidate-list width of later searches.
// Values below 1 are ignored.
func (idx *Index) SetExpansionSearch(ef int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	idx.graph.SetEFSearch(ef)
}

// Size returns the number of completed insertions.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Size()
}

// Capacity returns the number of nodes the index can hold without growing.
func (idx *Index) Capacity() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Capacity()
}

// ReadOnly reports whether the index is a memory-mapped view.
func (idx *Index) ReadOnly() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.mapped != nil
}

// Contains reports whether any node carries label.
func (idx *Index) Contains(label uint32) bool {
	return idx.labels.contains(label)
}

// Count returns the number of nodes carrying label.
func (idx *Index) Count(label uint32) int {
	return idx.labels.count(label)
}

// Reserve grows the index to hold at least capacity nodes. It never
// shrinks and is a no-op when the capacity already suffices.
func (idx *Index) Reserve(capacity int) error {
	return idx.reserve(context.Background(), capacity)
}

func (idx *Index) reserve(ctx context.Context, capacity int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.writableLocked(); err != nil {
		return err
	}
	current := idx.graph.Capacity()
	if capacity <= current {
		return nil
	}

	store := idx.graph.Store()
	hi, delta := bits.Mul64(uint64(capacity-current), uint64(vectorstore.NodeBytes(store.Stride(), store.Connectivity())))
	if hi != 0 || delta > 1<<62 {
		err := newAllocationError(capacity)
		idx.opts.logger.LogReserve(ctx, current, capacity, err)
		return err
	}
	if err := idx.opts.resources.ReserveMemory(int64(delta)); err != nil {
		err = translateError(err)
		idx.opts.logger.LogReserve(ctx, current, capacity, err)
		return err
	}
	if err := idx.graph.Grow(capacity); err != nil {
		idx.opts.resources.ReleaseMemory(int64(delta))
		err = translateError(err)
		idx.opts.logger.LogReserve(ctx, current, capacity, err)
		return err
	}
	idx.reserved += int64(delta)
	idx.pool.Grow(capacity)

	idx.opts.logger.LogReserve(ctx, current, capacity, nil)
	idx.opts.metrics.RecordGrow(capacity)
	return nil
}

// Close releases the mapping of a view and the memory of the arena. It is
// idempotent; other methods fail with ErrClosed afterwards.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true

	var err error
	if idx.mapped != nil {
		err = idx.mapped.Close()
		idx.mapped = nil
	}
	idx.opts.resources.ReleaseMemory(idx.reserved)
	idx.reserved = 0

	// Keep accessors answering for an empty, zero-capacity arena.
	store, serr := vectorstore.New(idx.codec.Stride(), idx.graph.Connectivity(), 0)
	if serr == nil {
		if g, gerr := idx.newGraph(store, idx.graph.EF(), idx.graph.EFSearch()); gerr == nil {
			idx.graph = g
		}
	}
	idx.labels.reset(nil)

	if err != nil {
		return translateError(err)
	}
	return nil
}

// writableLocked checks that the arena may be mutated. idx.mu must be held.
func (idx *Index) writableLocked() error {
	if idx.closed {
		return ErrClosed
	}
	if idx.mapped != nil {
		return ErrReadOnly
	}
	return nil
}

// encode validates vec and writes its stored form into s.Query.
func (idx *Index) encode(s *searcher.Context, vec []float32) error {
	if len(vec) != idx.dims {
		return dimensionMismatch(idx.dims, len(vec))
	}
	src := vec
	if idx.metric.Normalized() {
		s.Scratch = append(s.Scratch[:0], vec...)
		distance.NormalizeL2InPlace(s.Scratch)
		src = s.Scratch
	}
	idx.codec.Encode(s.Query, src)
	return nil
}

// nextCapacity returns the capacity Add grows a full index of the given
// capacity to.
func nextCapacity(capacity int) int {
	if capacity < minGrowth {
		return minGrowth
	}
	return 1 << bits.Len(uint(capacity))
}

func newAllocationError(capacity int) error {
	return fmt.Errorf("%w: cannot address an arena of %d nodes", ErrAllocationFailure, capacity)
}
