package searcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrInvalidSlot is returned for thread slots outside the pool's range.
var ErrInvalidSlot = errors.New("searcher: thread slot out of range")

// Context is the scratch state of one add or search call.
//
// Context is NOT thread-safe. It is owned by a single goroutine for the
// duration of an operation.
type Context struct {
	// Visited guards against expanding a node twice.
	Visited *VisitedSet

	// Candidates is the min-heap frontier of nodes still to expand.
	Candidates *PriorityQueue

	// Results is the bounded max-heap of the closest nodes found so far.
	Results *PriorityQueue

	// Query holds the encoded query vector.
	Query []byte

	// Scratch is a float buffer for normalizing input vectors.
	Scratch []float32

	// Sorted receives drained results and neighbor candidates.
	Sorted []PriorityQueueItem

	// Selected collects the output of neighbor selection.
	Selected []PriorityQueueItem

	// Pruned and Kept are the input and output of re-selecting an
	// overflowing neighbor list.
	Pruned []PriorityQueueItem
	Kept   []PriorityQueueItem

	// Links is a reusable buffer for reading neighbor lists.
	Links []uint32
}

// NewContext allocates a context for an arena of capacity nodes whose
// encoded vectors are stride bytes with dims components.
func NewContext(capacity, stride, dims int) *Context {
	return &Context{
		Visited:    NewVisitedSet(capacity),
		Candidates: NewPriorityQueue(false),
		Results:    NewPriorityQueue(true),
		Query:      make([]byte, stride),
		Scratch:    make([]float32, dims),
		Sorted:     make([]PriorityQueueItem, 0, 64),
		Selected:   make([]PriorityQueueItem, 0, 64),
		Pruned:     make([]PriorityQueueItem, 0, 64),
		Kept:       make([]PriorityQueueItem, 0, 64),
		Links:      make([]uint32, 0, 64),
	}
}

// Reset clears per-operation state while keeping allocated buffers.
func (c *Context) Reset() {
	c.Visited.Reset()
	c.Candidates.Reset()
	c.Results.Reset()
	c.Sorted = c.Sorted[:0]
	c.Selected = c.Selected[:0]
	c.Pruned = c.Pruned[:0]
	c.Kept = c.Kept[:0]
	c.Links = c.Links[:0]
}

// Pool hands out Contexts. Explicit thread slots are allocated lazily and
// reused by the caller that owns the slot; anonymous callers borrow from a
// sync.Pool.
type Pool struct {
	stride   int
	dims     int
	capacity atomic.Int64
	slots    []atomic.Pointer[Context]
	shared   sync.Pool
}

// NewPool creates a pool with maxThreads explicit slots.
func NewPool(maxThreads, capacity, stride, dims int) *Pool {
	p := &Pool{
		stride: stride,
		dims:   dims,
		slots:  make([]atomic.Pointer[Context], max(maxThreads, 1)),
	}
	p.capacity.Store(int64(capacity))
	p.shared.New = func() any {
		return NewContext(int(p.capacity.Load()), p.stride, p.dims)
	}
	return p
}

// Slots returns the number of explicit thread slots.
func (p *Pool) Slots() int {
	return len(p.slots)
}

// Grow records a new arena capacity. Contexts resize their visited sets the
// next time they are acquired.
func (p *Pool) Grow(capacity int) {
	for {
		cur := p.capacity.Load()
		if int64(capacity) <= cur || p.capacity.CompareAndSwap(cur, int64(capacity)) {
			return
		}
	}
}

// Slot returns the context bound to thread slot i, reset for a new operation.
func (p *Pool) Slot(i int) (*Context, error) {
	if i < 0 || i >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidSlot, i, len(p.slots))
	}
	c := p.slots[i].Load()
	if c == nil {
		fresh := NewContext(int(p.capacity.Load()), p.stride, p.dims)
		if p.slots[i].CompareAndSwap(nil, fresh) {
			c = fresh
		} else {
			c = p.slots[i].Load()
		}
	}
	p.prepare(c)
	return c, nil
}

// Get borrows an anonymous context. Return it with Put.
func (p *Pool) Get() *Context {
	c := p.shared.Get().(*Context)
	p.prepare(c)
	return c
}

// Put returns a context obtained from Get.
func (p *Pool) Put(c *Context) {
	p.shared.Put(c)
}

func (p *Pool) prepare(c *Context) {
	c.Reset()
	c.Visited.EnsureCapacity(int(p.capacity.Load()))
}
