package annex

import (
	"github.com/hupe1980/annex/distance"
)

// LevelStats describes one layer of the graph.
type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections float64
}

// IndexStats summarizes an index.
type IndexStats struct {
	Size           int
	Capacity       int
	DistinctLabels int
	MaxLevel       int
	Levels         []LevelStats
	// AvgDegree is the mean number of layer-0 neighbors.
	AvgDegree   float64
	MemoryBytes int64
	// Kernel is the instruction set the float32 distance kernels use.
	Kernel   string
	ReadOnly bool
}

// Stats walks the graph. It blocks insertions while it runs.
func (idx *Index) Stats() IndexStats {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	gs := idx.graph.Stats()
	st := IndexStats{
		Size:           gs.Nodes,
		Capacity:       idx.graph.Capacity(),
		DistinctLabels: idx.labels.distinct(),
		MaxLevel:       gs.MaxLevel,
		Kernel:         distance.ISA(),
		ReadOnly:       idx.mapped != nil,
	}
	for _, l := range gs.Levels {
		st.Levels = append(st.Levels, LevelStats(l))
	}
	if len(st.Levels) > 0 {
		st.AvgDegree = st.Levels[0].AvgConnections
	}
	if idx.mapped != nil {
		st.MemoryBytes = int64(idx.mapped.Size())
	} else {
		st.MemoryBytes = idx.graph.Store().MemoryBytes(gs.Nodes)
	}
	return st
}
