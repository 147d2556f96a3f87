package hnsw

import (
	"github.com/hupe1980/annex/internal/searcher"
)

// Search returns up to k nodes closest to the encoded query q, closest first.
// ef below 1 selects the graph's EFSearch; the queue is never smaller than k.
// The returned slice aliases s and is valid until s is reused.
func (g *Graph) Search(s *searcher.Context, q []byte, k, ef int) []searcher.PriorityQueueItem {
	if k <= 0 {
		return s.Sorted[:0]
	}
	epID, maxLevel := unpackEntry(g.entry.Load())
	if maxLevel < 0 {
		return s.Sorted[:0]
	}
	if ef <= 0 {
		ef = g.EFSearch()
	}
	ef = max(ef, k)

	curr := epID
	currDist := g.dist(q, g.store.Vector(curr))
	for layer := maxLevel; layer > 0; layer-- {
		curr, currDist = g.greedySearch(s, q, curr, currDist, layer)
	}

	g.searchLayer(s, q, curr, currDist, 0, ef)
	s.Sorted = s.Results.DrainSorted(s.Sorted[:0])
	if len(s.Sorted) > k {
		s.Sorted = s.Sorted[:k]
	}
	return s.Sorted
}

// SearchExact compares q against every inserted node. The caller must ensure
// no insertion is in flight.
func (g *Graph) SearchExact(s *searcher.Context, q []byte, k int) []searcher.PriorityQueueItem {
	s.Results.Reset()
	if k <= 0 {
		return s.Sorted[:0]
	}
	n := uint32(g.Size())
	for i := uint32(0); i < n; i++ {
		s.Results.PushItemBounded(searcher.PriorityQueueItem{Node: i, Distance: g.dist(q, g.store.Vector(i))}, k)
	}
	s.Sorted = s.Results.DrainSorted(s.Sorted[:0])
	return s.Sorted
}

// greedySearch walks layer towards q until no neighbor is closer.
func (g *Graph) greedySearch(s *searcher.Context, q []byte, curr uint32, currDist float32, layer int) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		s.Links = g.store.Neighbors(s.Links[:0], curr, layer)
		for _, next := range s.Links {
			d := g.dist(q, g.store.Vector(next))
			if d < currDist || (d == currDist && next < curr) {
				curr, currDist = next, d
				changed = true
			}
		}
	}
	return curr, currDist
}

// searchLayer runs a best-first search on layer from ep and leaves the ef
// closest nodes found in s.Results.
func (g *Graph) searchLayer(s *searcher.Context, q []byte, ep uint32, epDist float32, layer int, ef int) {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.Results.Reset()

	s.Visited.Visit(ep)
	s.Candidates.PushItem(searcher.PriorityQueueItem{Node: ep, Distance: epDist})
	s.Results.PushItem(searcher.PriorityQueueItem{Node: ep, Distance: epDist})

	for s.Candidates.Len() > 0 {
		curr, _ := s.Candidates.PopItem()

		worst, _ := s.Results.TopItem()
		if curr.Distance > worst.Distance && s.Results.Len() >= ef {
			break
		}

		s.Links = g.store.Neighbors(s.Links[:0], curr.Node, layer)
		for _, next := range s.Links {
			if !s.Visited.Visit(next) {
				continue
			}
			d := g.dist(q, g.store.Vector(next))

			// Avoid pushing obviously-bad candidates once the queue is full.
			if s.Results.Len() >= ef {
				worst, _ := s.Results.TopItem()
				if d > worst.Distance {
					continue
				}
			}
			item := searcher.PriorityQueueItem{Node: next, Distance: d}
			s.Candidates.PushItem(item)
			s.Results.PushItemBounded(item, ef)
		}
	}
}
