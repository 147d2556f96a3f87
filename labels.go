package annex

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// labelSet counts how many nodes carry each label. The first occurrence
// lives in the bitmap; repeats are counted in extra.
type labelSet struct {
	mu      sync.Mutex
	present *roaring.Bitmap
	extra   map[uint32]int
}

func newLabelSet() *labelSet {
	return &labelSet{
		present: roaring.New(),
		extra:   make(map[uint32]int),
	}
}

// add records one more node for label. With unique set it refuses labels
// that are already present.
func (s *labelSet) add(label uint32, unique bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.present.CheckedAdd(label) {
		return true
	}
	if unique {
		return false
	}
	s.extra[label]++
	return true
}

// remove undoes one add.
func (s *labelSet) remove(label uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.extra[label]; n > 0 {
		if n == 1 {
			delete(s.extra, label)
		} else {
			s.extra[label] = n - 1
		}
		return
	}
	s.present.Remove(label)
}

func (s *labelSet) contains(label uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present.Contains(label)
}

func (s *labelSet) count(label uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present.Contains(label) {
		return 0
	}
	return 1 + s.extra[label]
}

// distinct returns the number of different labels.
func (s *labelSet) distinct() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.present.GetCardinality())
}

// reset replaces the contents with labels.
func (s *labelSet) reset(labels []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present = roaring.New()
	s.extra = make(map[uint32]int)
	for _, l := range labels {
		if !s.present.CheckedAdd(l) {
			s.extra[l]++
		}
	}
}
