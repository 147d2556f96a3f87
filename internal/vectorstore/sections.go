package vectorstore

import (
	"fmt"
)

// Sections is the flat, serializable form of the first Size nodes of a store.
type Sections struct {
	Size   int
	Stride int
	M      int

	Vectors      []byte
	Levels       []uint8
	Base         []uint32
	UpperOffsets []uint32 // index into Upper, Sentinel for level-0 nodes
	Upper        []uint32
	Labels       []uint32
}

// Export returns the sections of the first n nodes. Vectors, Levels, Base and
// Labels alias the arena; the upper table is assembled into a fresh slice.
// The caller must hold exclusive access until the sections are consumed.
func (s *Store) Export(n int) Sections {
	sec := Sections{
		Size:         n,
		Stride:       s.stride,
		M:            s.m,
		Vectors:      s.vectors[:n*s.stride],
		Levels:       s.levels[:n],
		Base:         s.base[:n*s.m0],
		UpperOffsets: make([]uint32, n),
		Labels:       s.labels[:n],
	}

	total := 0
	for i := 0; i < n; i++ {
		total += len(s.upper[i])
	}
	sec.Upper = make([]uint32, 0, total)
	for i := 0; i < n; i++ {
		if len(s.upper[i]) == 0 {
			sec.UpperOffsets[i] = Sentinel
			continue
		}
		sec.UpperOffsets[i] = uint32(len(sec.Upper))
		sec.Upper = append(sec.Upper, s.upper[i]...)
	}
	return sec
}

// FromSections rebuilds a store over sec without copying. With readOnly the
// store rejects mutation; use it for memory-mapped sections. Every neighbor
// reference is checked against the node count and, on upper layers, against
// the level of the referenced node.
func FromSections(sec Sections, readOnly bool) (*Store, error) {
	if err := sec.validate(); err != nil {
		return nil, err
	}

	s := &Store{
		stride:   sec.Stride,
		m:        sec.M,
		m0:       2 * sec.M,
		capacity: sec.Size,
		readOnly: readOnly,
		vectors:  sec.Vectors,
		labels:   sec.Labels,
		levels:   sec.Levels,
		base:     sec.Base,
		upper:    make([][]uint32, sec.Size),
	}
	for i := 0; i < sec.Size; i++ {
		if n := int(sec.Levels[i]) * sec.M; n > 0 {
			off := int(sec.UpperOffsets[i])
			s.upper[i] = sec.Upper[off : off+n : off+n]
		}
	}
	return s, nil
}

func (sec Sections) validate() error {
	n, m := sec.Size, sec.M
	switch {
	case n < 0 || m <= 0 || sec.Stride <= 0:
		return fmt.Errorf("%w: size=%d connectivity=%d stride=%d", ErrInconsistent, n, m, sec.Stride)
	case len(sec.Vectors) != n*sec.Stride:
		return fmt.Errorf("%w: vectors section has %d bytes, want %d", ErrInconsistent, len(sec.Vectors), n*sec.Stride)
	case len(sec.Levels) != n || len(sec.Labels) != n || len(sec.UpperOffsets) != n:
		return fmt.Errorf("%w: per-node tables do not match size %d", ErrInconsistent, n)
	case len(sec.Base) != n*2*m:
		return fmt.Errorf("%w: base table has %d slots, want %d", ErrInconsistent, len(sec.Base), n*2*m)
	}

	for _, id := range sec.Base {
		if id != Sentinel && int(id) >= n {
			return fmt.Errorf("%w: neighbor %d out of range", ErrInconsistent, id)
		}
	}

	for i := 0; i < n; i++ {
		level := int(sec.Levels[i])
		if level > MaxLevel {
			return fmt.Errorf("%w: node %d has level %d", ErrInconsistent, i, level)
		}
		off := sec.UpperOffsets[i]
		if level == 0 {
			if off != Sentinel {
				return fmt.Errorf("%w: node %d has upper offset without upper layers", ErrInconsistent, i)
			}
			continue
		}
		if off == Sentinel || int(off)+level*m > len(sec.Upper) {
			return fmt.Errorf("%w: node %d upper offset %d out of range", ErrInconsistent, i, off)
		}
	}

	// A neighbor at layer L must itself reach layer L.
	for i := 0; i < n; i++ {
		level := int(sec.Levels[i])
		for layer := 1; layer <= level; layer++ {
			start := int(sec.UpperOffsets[i]) + (layer-1)*m
			for _, id := range sec.Upper[start : start+m] {
				if id == Sentinel {
					continue
				}
				if int(id) >= n {
					return fmt.Errorf("%w: neighbor %d out of range", ErrInconsistent, id)
				}
				if int(sec.Levels[id]) < layer {
					return fmt.Errorf("%w: node %d links node %d at layer %d above its level %d", ErrInconsistent, i, id, layer, sec.Levels[id])
				}
			}
		}
	}
	return nil
}
