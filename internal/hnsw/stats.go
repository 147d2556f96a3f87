package hnsw

// LevelStats describes one layer of the graph.
type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections float64
}

// Stats summarizes the graph.
type Stats struct {
	Nodes    int
	MaxLevel int
	Levels   []LevelStats
}

// Stats walks every inserted node. The caller must ensure no insertion is in
// flight.
func (g *Graph) Stats() Stats {
	n := g.Size()
	_, maxLevel, ok := g.EntryPoint()
	st := Stats{Nodes: n, MaxLevel: maxLevel}
	if !ok {
		st.MaxLevel = 0
		return st
	}

	st.Levels = make([]LevelStats, maxLevel+1)
	for i := range st.Levels {
		st.Levels[i].Level = i
	}
	for i := uint32(0); i < uint32(n); i++ {
		level := g.store.Level(i)
		for layer := 0; layer <= level && layer <= maxLevel; layer++ {
			st.Levels[layer].Nodes++
			st.Levels[layer].Connections += g.store.Degree(i, layer)
		}
	}
	for i := range st.Levels {
		if st.Levels[i].Nodes > 0 {
			st.Levels[i].AvgConnections = float64(st.Levels[i].Connections) / float64(st.Levels[i].Nodes)
		}
	}
	return st
}
