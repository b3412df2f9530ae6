package hnsw

// Stats summarizes an Index's shape, useful for diagnostics and tests.
type Stats struct {
	Count        int64
	MaxLevel     int
	M            int
	EFConstruct  int
	EFSearch     int
	LevelCounts  []int // number of nodes whose assigned level is >= index
	AvgNeighbors []float64
}

// Stats computes a snapshot of the index's current shape. It takes idx.mu
// for the duration of the scan, so it is not cheap enough to call on a hot
// path.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	maxLevel := int(idx.maxLevel.Load())
	s := Stats{
		Count:        idx.size.Load(),
		MaxLevel:     maxLevel,
		M:            idx.opts.M,
		EFConstruct:  idx.opts.EFConstruction,
		EFSearch:     idx.opts.EFSearch,
		LevelCounts:  make([]int, maxLevel+1),
		AvgNeighbors: make([]float64, maxLevel+1),
	}

	neighborSums := make([]int, maxLevel+1)
	for _, n := range idx.nodes {
		for lvl := 0; lvl <= n.level && lvl <= maxLevel; lvl++ {
			s.LevelCounts[lvl]++
			neighborSums[lvl] += n.neighborCount(lvl)
		}
	}
	for lvl := range s.AvgNeighbors {
		if s.LevelCounts[lvl] > 0 {
			s.AvgNeighbors[lvl] = float64(neighborSums[lvl]) / float64(s.LevelCounts[lvl])
		}
	}
	return s
}
