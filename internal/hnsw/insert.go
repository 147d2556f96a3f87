package hnsw

import (
	"slices"

	"github.com/hupe1980/annex/internal/searcher"
)

// Insert links node id, previously obtained from Claim, into the graph. vec
// is the encoded vector. s must be owned by the calling goroutine.
func (g *Graph) Insert(s *searcher.Context, id, label uint32, vec []byte) {
	g.insert(s, id, label, vec, g.randomLevel())
}

func (g *Graph) insert(s *searcher.Context, id, label uint32, vec []byte, level int) {
	g.store.Init(id, label, level, vec)
	vec = g.store.Vector(id)

	ep := g.entry.Load()
	_, maxLevel := unpackEntry(ep)
	if level > maxLevel {
		// Raising the top level is serialized so the new entry point is
		// linked on every layer it spans before it is published.
		g.entryMu.Lock()
		defer g.entryMu.Unlock()
		ep = g.entry.Load()
	}

	epID, maxLevel := unpackEntry(ep)
	if maxLevel < 0 {
		g.entry.Store(packEntry(id, level))
		g.size.Add(1)
		return
	}

	curr := epID
	currDist := g.dist(vec, g.store.Vector(curr))
	for layer := maxLevel; layer > level; layer-- {
		curr, currDist = g.greedySearch(s, vec, curr, currDist, layer)
	}

	for layer := min(level, maxLevel); layer >= 0; layer-- {
		g.searchLayer(s, vec, curr, currDist, layer, g.ef)
		s.Sorted = s.Results.DrainSorted(s.Sorted[:0])
		s.Sorted = slices.DeleteFunc(s.Sorted, func(it searcher.PriorityQueueItem) bool {
			return it.Node == id
		})
		if len(s.Sorted) == 0 {
			continue
		}
		curr, currDist = s.Sorted[0].Node, s.Sorted[0].Distance

		s.Selected = g.selectNeighbors(s.Selected[:0], s.Sorted, g.m)
		s.Links = s.Links[:0]
		for _, n := range s.Selected {
			s.Links = append(s.Links, n.Node)
		}

		mu := g.lock(id)
		mu.Lock()
		g.store.SetNeighbors(id, layer, s.Links)
		mu.Unlock()

		for _, n := range s.Selected {
			g.addConnection(s, n.Node, id, layer, n.Distance)
		}
	}

	if level > maxLevel {
		g.entry.Store(packEntry(id, level))
	}
	g.size.Add(1)
}

// selectNeighbors keeps a candidate only if it is closer to the base node
// than to every neighbor already kept. cands must be sorted closest first.
func (g *Graph) selectNeighbors(dst, cands []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	dst = dst[:0]
	for _, cand := range cands {
		if len(dst) >= m {
			break
		}
		cv := g.store.Vector(cand.Node)
		good := true
		for _, kept := range dst {
			if g.dist(cv, g.store.Vector(kept.Node)) < cand.Distance {
				good = false
				break
			}
		}
		if good {
			dst = append(dst, cand)
		}
	}
	return dst
}

// addConnection adds target to the neighbor list of source at layer. A full
// list is re-selected from its members plus target with the heuristic.
func (g *Graph) addConnection(s *searcher.Context, source, target uint32, layer int, dist float32) {
	mu := g.lock(source)
	mu.Lock()
	defer mu.Unlock()

	s.Links = g.store.Neighbors(s.Links[:0], source, layer)
	if slices.Contains(s.Links, target) {
		return
	}
	if g.store.AppendNeighbor(source, layer, target) {
		return
	}

	sv := g.store.Vector(source)
	s.Pruned = s.Pruned[:0]
	for _, n := range s.Links {
		s.Pruned = append(s.Pruned, searcher.PriorityQueueItem{Node: n, Distance: g.dist(sv, g.store.Vector(n))})
	}
	s.Pruned = append(s.Pruned, searcher.PriorityQueueItem{Node: target, Distance: dist})
	slices.SortFunc(s.Pruned, compareItems)

	s.Kept = g.selectNeighbors(s.Kept[:0], s.Pruned, g.store.Width(layer))
	s.Links = s.Links[:0]
	for _, n := range s.Kept {
		s.Links = append(s.Links, n.Node)
	}
	g.store.SetNeighbors(source, layer, s.Links)
}

func compareItems(a, b searcher.PriorityQueueItem) int {
	switch {
	case a.Closer(b):
		return -1
	case b.Closer(a):
		return 1
	default:
		return 0
	}
}
