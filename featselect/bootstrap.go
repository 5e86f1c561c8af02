package featselect

import (
	"fmt"
	"math/rand"
	"sort"
)

// bootstrapIDs draws a size-nSamples resample of d's subjects with
// replacement. When stratify names a column, draws happen within each level
// of that column with counts allocated proportionally (largest remainders
// break the rounding), preserving class proportions.
func bootstrapIDs(rnd *rand.Rand, d *Dataset, nSamples int, stratify string) ([]int64, error) {
	ids := d.SubjectIDs()
	if nSamples <= 0 {
		nSamples = len(ids)
	}
	if stratify == "" {
		out := make([]int64, nSamples)
		for i := range out {
			out[i] = ids[rnd.Intn(len(ids))]
		}
		return out, nil
	}

	col, ok := d.Column(stratify)
	if !ok {
		return nil, fmt.Errorf("featselect: stratify column %q not in dataset", stratify)
	}
	groups := map[float64][]int64{}
	var levels []float64
	for i, v := range col {
		if _, ok := groups[v]; !ok {
			levels = append(levels, v)
		}
		groups[v] = append(groups[v], ids[i])
	}
	sort.Float64s(levels) // deterministic allocation order

	type alloc struct {
		level     float64
		count     int
		remainder float64
	}
	allocs := make([]alloc, len(levels))
	total := 0
	for i, lv := range levels {
		exact := float64(len(groups[lv])) * float64(nSamples) / float64(len(ids))
		base := int(exact)
		allocs[i] = alloc{level: lv, count: base, remainder: exact - float64(base)}
		total += base
	}
	// Hand the leftover draws to the largest remainders.
	sort.SliceStable(allocs, func(a, b int) bool { return allocs[a].remainder > allocs[b].remainder })
	for i := 0; total < nSamples; i = (i + 1) % len(allocs) {
		allocs[i].count++
		total++
	}

	out := make([]int64, 0, nSamples)
	for _, a := range allocs {
		g := groups[a.level]
		for i := 0; i < a.count; i++ {
			out = append(out, g[rnd.Intn(len(g))])
		}
	}
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}
