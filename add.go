package annex

import (
	"context"
	"time"

	"github.com/hupe1980/annex/internal/searcher"
)

// Add inserts vec under label. A full index grows to the next power of two
// unless growth is disabled. Several nodes may share a label unless
// duplicates are disabled.
func (idx *Index) Add(label uint32, vec []float32) error {
	start := time.Now()
	s := idx.pool.Get()
	defer idx.pool.Put(s)
	err := idx.add(s, label, vec)
	idx.recordInsert(label, start, err)
	return err
}

// AddInThread is Add using the scratch state of thread slot thread, which
// must be in [0, max threads). A slot must not be used by two calls at once.
func (idx *Index) AddInThread(label uint32, vec []float32, thread int) error {
	start := time.Now()
	s, err := idx.slot(thread)
	if err == nil {
		err = idx.add(s, label, vec)
	}
	idx.recordInsert(label, start, err)
	return err
}

func (idx *Index) recordInsert(label uint32, start time.Time, err error) {
	idx.opts.metrics.RecordInsert(time.Since(start), err)
	if err != nil {
		idx.opts.logger.LogInsert(context.Background(), label, idx.dims, err)
	}
}

func (idx *Index) slot(thread int) (*searcher.Context, error) {
	s, err := idx.pool.Slot(thread)
	if err != nil {
		return nil, translateError(err)
	}
	return s, nil
}

// add validates the input, reserves the label and a storage slot, and links
// the node. Nothing is touched in the graph until every check has passed;
// from then on insertion cannot fail.
func (idx *Index) add(s *searcher.Context, label uint32, vec []float32) error {
	if err := idx.encode(s, vec); err != nil {
		return err
	}

	for {
		idx.mu.RLock()
		if err := idx.writableLocked(); err != nil {
			idx.mu.RUnlock()
			return err
		}
		// Contexts are sized on acquisition; a concurrent Reserve may have
		// grown the arena since.
		s.Visited.EnsureCapacity(idx.graph.Capacity())

		if !idx.labels.add(label, !idx.opts.duplicates) {
			idx.mu.RUnlock()
			return ErrDuplicateNotAllowed
		}
		if id, ok := idx.graph.Claim(); ok {
			idx.graph.Insert(s, id, label, s.Query)
			idx.mu.RUnlock()
			return nil
		}
		idx.labels.remove(label)
		capacity := idx.graph.Capacity()
		idx.mu.RUnlock()

		if !idx.opts.growth {
			return ErrCapacityExceeded
		}
		if err := idx.reserve(context.Background(), nextCapacity(capacity)); err != nil {
			return err
		}
	}
}
