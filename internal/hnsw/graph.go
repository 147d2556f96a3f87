package hnsw

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/annex/distance"
	"github.com/hupe1980/annex/internal/vectorstore"
)

const (
	// DefaultEF is the construction queue size.
	DefaultEF = 128
	// DefaultEFSearch is the search queue size.
	DefaultEFSearch = 64
	// DefaultSeed seeds level assignment.
	DefaultSeed = 42
	// DefaultLocks is the number of lock stripes guarding neighbor lists.
	DefaultLocks = 1024
)

// ErrInvalidEntryPoint is returned when restoring a graph whose entry point
// does not match its nodes.
var ErrInvalidEntryPoint = errors.New("hnsw: invalid entry point")

// Options configures a Graph.
type Options struct {
	// EF is the candidate queue size while inserting.
	EF int
	// EFSearch is the default candidate queue size while searching.
	EFSearch int
	// Seed initializes the level generator.
	Seed uint64
	// Locks is the number of lock stripes.
	Locks int
}

// DefaultOptions contains the default configuration.
var DefaultOptions = Options{
	EF:       DefaultEF,
	EFSearch: DefaultEFSearch,
	Seed:     DefaultSeed,
	Locks:    DefaultLocks,
}

// Graph is a concurrent HNSW graph over a vectorstore arena.
//
// Insert and Search may run concurrently. Grow and Restore require the
// caller to exclude every other operation.
type Graph struct {
	store *vectorstore.Store
	dist  distance.Func

	m               int
	ef              int
	efSearch        atomic.Int64
	layerMultiplier float64
	rngSeed         atomic.Uint64

	// entry packs (level+1)<<32 | node; zero means the graph is empty.
	entry   atomic.Uint64
	entryMu sync.Mutex

	claimed atomic.Uint32
	size    atomic.Uint32

	locks []sync.Mutex
}

// New creates an empty graph over store using dist to compare encoded vectors.
func New(store *vectorstore.Store, dist distance.Func, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	m := store.Connectivity()
	if m < 2 {
		return nil, fmt.Errorf("hnsw: connectivity must be at least 2, got %d", m)
	}
	if opts.EF <= 0 {
		opts.EF = DefaultEF
	}
	if opts.EFSearch <= 0 {
		opts.EFSearch = DefaultEFSearch
	}
	if opts.Locks <= 0 {
		opts.Locks = DefaultLocks
	}

	g := &Graph{
		store:           store,
		dist:            dist,
		m:               m,
		ef:              opts.EF,
		layerMultiplier: 1 / math.Log(float64(m)),
		locks:           make([]sync.Mutex, opts.Locks),
	}
	g.efSearch.Store(int64(opts.EFSearch))
	g.rngSeed.Store(opts.Seed)
	return g, nil
}

// Store returns the underlying arena.
func (g *Graph) Store() *vectorstore.Store { return g.store }

// Connectivity returns M.
func (g *Graph) Connectivity() int { return g.m }

// EF returns the construction queue size.
func (g *Graph) EF() int { return g.ef }

// EFSearch returns the default search queue size.
func (g *Graph) EFSearch() int { return int(g.efSearch.Load()) }

// SetEFSearch changes the default search queue size. Values below 1 are ignored.
func (g *Graph) SetEFSearch(ef int) {
	if ef > 0 {
		g.efSearch.Store(int64(ef))
	}
}

// Size returns the number of completed insertions.
func (g *Graph) Size() int { return int(g.size.Load()) }

// Claimed returns the number of storage slots handed out by Claim.
func (g *Graph) Claimed() int { return int(g.claimed.Load()) }

// Capacity returns the arena capacity.
func (g *Graph) Capacity() int { return g.store.Capacity() }

// EntryPoint returns the entry node and the graph's top level.
func (g *Graph) EntryPoint() (node uint32, level int, ok bool) {
	node, level = unpackEntry(g.entry.Load())
	return node, level, level >= 0
}

// Claim reserves the next free storage slot. It reports false when the arena
// is full.
func (g *Graph) Claim() (uint32, bool) {
	capacity := g.store.Capacity()
	for {
		n := g.claimed.Load()
		if int(n) >= capacity {
			return 0, false
		}
		if g.claimed.CompareAndSwap(n, n+1) {
			return n, true
		}
	}
}

// Grow enlarges the arena. The caller must exclude all other operations.
func (g *Graph) Grow(capacity int) error {
	return g.store.Grow(capacity)
}

// Restore marks the first n arena nodes as inserted and installs the entry
// point. The caller must exclude all other operations.
func (g *Graph) Restore(n int, entry uint32, maxLevel int) error {
	if n > g.store.Capacity() {
		return fmt.Errorf("%w: %d nodes exceed capacity %d", ErrInvalidEntryPoint, n, g.store.Capacity())
	}
	if n == 0 {
		g.entry.Store(0)
	} else {
		if int(entry) >= n || g.store.Level(entry) != maxLevel {
			return fmt.Errorf("%w: node %d at level %d", ErrInvalidEntryPoint, entry, maxLevel)
		}
		g.entry.Store(packEntry(entry, maxLevel))
	}
	g.claimed.Store(uint32(n))
	g.size.Store(uint32(n))
	return nil
}

func packEntry(node uint32, level int) uint64 {
	return uint64(level+1)<<32 | uint64(node)
}

func unpackEntry(v uint64) (uint32, int) {
	return uint32(v), int(v>>32) - 1
}

func (g *Graph) lock(node uint32) *sync.Mutex {
	return &g.locks[node%uint32(len(g.locks))]
}

// randomLevel draws a level from the exponential distribution with
// normalization 1/ln(M).
func (g *Graph) randomLevel() int {
	seed := g.rngSeed.Add(0x9E3779B97F4A7C15)
	seed ^= seed >> 12
	seed ^= seed << 25
	seed ^= seed >> 27
	r := float64(seed*0x2545F4914F6CDD1D>>11) / float64(1<<53)
	if r == 0 {
		return vectorstore.MaxLevel
	}
	return min(int(math.Floor(-math.Log(r)*g.layerMultiplier)), vectorstore.MaxLevel)
}
