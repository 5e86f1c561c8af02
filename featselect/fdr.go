package featselect

import (
	"math"
	"sort"
)

// applyBH recomputes adjusted p-values in place using the Benjamini-Hochberg
// step-up procedure (the independence-assumption FDR variant). Records whose
// raw p-value is the undefined sentinel keep a NaN adjustment and do not
// count toward the number of hypotheses.
func applyBH(recs []ScoreRecord) {
	idx := make([]int, 0, len(recs))
	for i := range recs {
		if !math.IsNaN(recs[i].PValue) {
			idx = append(idx, i)
		}
	}
	m := len(idx)
	if m == 0 {
		return
	}
	sort.Slice(idx, func(a, b int) bool { return recs[idx[a]].PValue < recs[idx[b]].PValue })
	adj := make([]float64, m)
	running := math.Inf(1)
	for rank := m - 1; rank >= 0; rank-- {
		v := recs[idx[rank]].PValue * float64(m) / float64(rank+1)
		if v < running {
			running = v
		}
		adj[rank] = math.Min(running, 1)
	}
	for rank, i := range idx {
		recs[i].PValueAdj = adj[rank]
	}
}
