package annex

import (
	"context"
	"time"

	"github.com/hupe1980/annex/internal/searcher"
)

// Matches is the result of a search, sorted by ascending distance. Ties are
// broken by insertion order.
type Matches struct {
	Count     int
	Labels    []uint32
	Distances []float32
}

// Search returns up to k labels closest to q. k above Size returns every
// node; k <= 0 and an empty index return no matches.
func (idx *Index) Search(q []float32, k int) (Matches, error) {
	start := time.Now()
	s := idx.pool.Get()
	defer idx.pool.Put(s)
	m, err := idx.search(s, q, k)
	idx.recordSearch(k, m.Count, start, err)
	return m, err
}

// SearchInThread is Search using the scratch state of thread slot thread.
func (idx *Index) SearchInThread(q []float32, k, thread int) (Matches, error) {
	start := time.Now()
	s, err := idx.slot(thread)
	var m Matches
	if err == nil {
		m, err = idx.search(s, q, k)
	}
	idx.recordSearch(k, m.Count, start, err)
	return m, err
}

// SearchExact compares q against every node. It is exact but linear in Size
// and blocks insertions while it runs.
func (idx *Index) SearchExact(q []float32, k int) (Matches, error) {
	start := time.Now()
	s := idx.pool.Get()
	defer idx.pool.Put(s)

	m, err := func() (Matches, error) {
		if err := idx.encode(s, q); err != nil {
			return Matches{}, err
		}
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if idx.closed {
			return Matches{}, ErrClosed
		}
		return idx.matches(idx.graph.SearchExact(s, s.Query, k)), nil
	}()
	idx.recordSearch(k, m.Count, start, err)
	return m, err
}

func (idx *Index) recordSearch(k, found int, start time.Time, err error) {
	idx.opts.metrics.RecordSearch(k, time.Since(start), err)
	idx.opts.logger.LogSearch(context.Background(), k, found, err)
}

func (idx *Index) search(s *searcher.Context, q []float32, k int) (Matches, error) {
	if err := idx.encode(s, q); err != nil {
		return Matches{}, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return Matches{}, ErrClosed
	}
	if k <= 0 {
		return Matches{}, nil
	}
	s.Visited.EnsureCapacity(idx.graph.Capacity())
	return idx.matches(idx.graph.Search(s, s.Query, k, 0)), nil
}

// matches copies graph results into a caller-owned value. idx.mu must be
// held.
func (idx *Index) matches(items []searcher.PriorityQueueItem) Matches {
	m := Matches{
		Count:     len(items),
		Labels:    make([]uint32, len(items)),
		Distances: make([]float32, len(items)),
	}
	store := idx.graph.Store()
	for i, it := range items {
		m.Labels[i] = store.Label(it.Node)
		m.Distances[i] = it.Distance
	}
	return m
}
