package vectorstore

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"
)

// Sentinel marks an empty neighbor slot.
const Sentinel = ^uint32(0)

// MaxLevel is the highest layer a node can be assigned.
const MaxLevel = 31

var (
	// ErrReadOnly is returned when mutating a store backed by a read-only mapping.
	ErrReadOnly = errors.New("vectorstore: store is read-only")
	// ErrCapacityOverflow is returned when the arena size overflows.
	ErrCapacityOverflow = errors.New("vectorstore: capacity overflow")
	// ErrInconsistent is returned when sections do not describe a valid arena.
	ErrInconsistent = errors.New("vectorstore: inconsistent sections")
)

// Store is the node arena. See the package documentation for the layout.
type Store struct {
	stride   int
	m        int
	m0       int
	capacity int
	readOnly bool

	vectors []byte
	labels  []uint32
	levels  []uint8
	base    []uint32
	upper   [][]uint32
}

// New allocates an owned, writable store.
func New(stride, connectivity, capacity int) (*Store, error) {
	s := &Store{
		stride: stride,
		m:      connectivity,
		m0:     2 * connectivity,
	}
	if err := s.Grow(capacity); err != nil {
		return nil, err
	}
	return s, nil
}

// NodeBytes returns the fixed arena bytes one node occupies, excluding its
// upper-layer slots.
func NodeBytes(stride, connectivity int) int64 {
	const sliceHeader = int64(unsafe.Sizeof([]uint32(nil)))
	return int64(stride) + 4 + 1 + int64(2*connectivity)*4 + sliceHeader
}

// Stride returns the encoded vector size in bytes.
func (s *Store) Stride() int { return s.stride }

// Connectivity returns the upper-layer neighbor-list width M.
func (s *Store) Connectivity() int { return s.m }

// BaseWidth returns the layer-0 neighbor-list width 2M.
func (s *Store) BaseWidth() int { return s.m0 }

// Capacity returns the number of nodes the arena can hold.
func (s *Store) Capacity() int { return s.capacity }

// ReadOnly reports whether the store is backed by a read-only mapping.
func (s *Store) ReadOnly() bool { return s.readOnly }

// Grow enlarges the arena to hold at least capacity nodes. It never shrinks.
// The caller must hold exclusive access.
func (s *Store) Grow(capacity int) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if capacity <= s.capacity {
		return nil
	}
	if uint64(capacity) > math.MaxUint32-1 || int64(capacity) > math.MaxInt/max(NodeBytes(s.stride, s.m), 1) {
		return fmt.Errorf("%w: %d nodes", ErrCapacityOverflow, capacity)
	}

	vectors := make([]byte, capacity*s.stride)
	copy(vectors, s.vectors)

	labels := make([]uint32, capacity)
	copy(labels, s.labels)

	levels := make([]uint8, capacity)
	copy(levels, s.levels)

	base := make([]uint32, capacity*s.m0)
	n := copy(base, s.base)
	for i := n; i < len(base); i++ {
		base[i] = Sentinel
	}

	upper := make([][]uint32, capacity)
	copy(upper, s.upper)

	s.vectors, s.labels, s.levels, s.base, s.upper = vectors, labels, levels, base, upper
	s.capacity = capacity
	return nil
}

// Init writes the payload of node i and clears its neighbor slots. It must
// complete before i is published to other goroutines.
func (s *Store) Init(i uint32, label uint32, level int, vec []byte) {
	copy(s.vectors[int(i)*s.stride:int(i+1)*s.stride], vec)
	s.labels[i] = label
	s.levels[i] = uint8(level)
	if level > 0 {
		up := make([]uint32, level*s.m)
		for j := range up {
			up[j] = Sentinel
		}
		s.upper[i] = up
	} else {
		s.upper[i] = nil
	}
}

// Vector returns the encoded vector of node i.
func (s *Store) Vector(i uint32) []byte {
	off := int(i) * s.stride
	return s.vectors[off : off+s.stride : off+s.stride]
}

// Label returns the label of node i.
func (s *Store) Label(i uint32) uint32 {
	return s.labels[i]
}

// Level returns the top layer of node i.
func (s *Store) Level(i uint32) int {
	return int(s.levels[i])
}

// Width returns the neighbor-list width of the given layer.
func (s *Store) Width(layer int) int {
	if layer == 0 {
		return s.m0
	}
	return s.m
}

// slots returns the raw neighbor slots of node i at layer.
func (s *Store) slots(i uint32, layer int) []uint32 {
	if layer == 0 {
		off := int(i) * s.m0
		return s.base[off : off+s.m0 : off+s.m0]
	}
	off := (layer - 1) * s.m
	return s.upper[i][off : off+s.m : off+s.m]
}

// Neighbors appends the neighbors of node i at layer to dst.
func (s *Store) Neighbors(dst []uint32, i uint32, layer int) []uint32 {
	slots := s.slots(i, layer)
	for j := range slots {
		id := atomic.LoadUint32(&slots[j])
		if id == Sentinel {
			break
		}
		dst = append(dst, id)
	}
	return dst
}

// Degree returns the number of neighbors of node i at layer.
func (s *Store) Degree(i uint32, layer int) int {
	slots := s.slots(i, layer)
	for j := range slots {
		if atomic.LoadUint32(&slots[j]) == Sentinel {
			return j
		}
	}
	return len(slots)
}

// SetNeighbors replaces the neighbors of node i at layer, padding with
// Sentinel. ids must not exceed the layer width. The caller must hold the
// node's lock.
func (s *Store) SetNeighbors(i uint32, layer int, ids []uint32) {
	slots := s.slots(i, layer)
	for j := range slots {
		v := Sentinel
		if j < len(ids) {
			v = ids[j]
		}
		atomic.StoreUint32(&slots[j], v)
	}
}

// AppendNeighbor adds id to node i at layer if a free slot exists and reports
// whether it did. The caller must hold the node's lock.
func (s *Store) AppendNeighbor(i uint32, layer int, id uint32) bool {
	slots := s.slots(i, layer)
	for j := range slots {
		if atomic.LoadUint32(&slots[j]) == Sentinel {
			atomic.StoreUint32(&slots[j], id)
			return true
		}
	}
	return false
}

// MemoryBytes returns the approximate heap footprint of n nodes.
func (s *Store) MemoryBytes(n int) int64 {
	total := int64(s.capacity) * NodeBytes(s.stride, s.m)
	for i := 0; i < n && i < s.capacity; i++ {
		total += int64(len(s.upper[i])) * 4
	}
	return total
}
