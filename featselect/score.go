package featselect

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// scoreFunc computes one feature's method-specific score fields and raw
// p-value (NaN when the method has none, or when the statistic is undefined
// for this column).
type scoreFunc func(m Method, feature, target []float64) ([]float64, float64, error)

// scoreFeature is the production scoreFunc.
func scoreFeature(m Method, feature, target []float64) ([]float64, float64, error) {
	switch m {
	case Chi2:
		return chi2Score(feature, target)
	case InfoGain:
		return infogainScore(feature, target)
	case MWU:
		return mwuScore(feature, target)
	case TTest:
		return ttestScore(feature, target)
	}
	return nil, 0, fmt.Errorf("featselect: method %v is not a per-feature scorer", m)
}

// chi2Score computes the contingency-table chi-square statistic between the
// binarized feature (reference vs carrier) and the discrete target.
func chi2Score(feature, target []float64) ([]float64, float64, error) {
	classOf := map[int]int{}
	for _, t := range target {
		c := int(t)
		if _, ok := classOf[c]; !ok {
			classOf[c] = len(classOf)
		}
	}
	k := len(classOf)
	obs := make([][]float64, 2)
	for i := range obs {
		obs[i] = make([]float64, k)
	}
	for i, v := range feature {
		row := 0
		if v != 0 {
			row = 1
		}
		obs[row][classOf[int(target[i])]]++
	}

	rowTot := make([]float64, 2)
	colTot := make([]float64, k)
	var n float64
	for r := range obs {
		for c, v := range obs[r] {
			rowTot[r] += v
			colTot[c] += v
			n += v
		}
	}
	nr, nc := 0, 0
	for _, v := range rowTot {
		if v > 0 {
			nr++
		}
	}
	for _, v := range colTot {
		if v > 0 {
			nc++
		}
	}
	dof := (nr - 1) * (nc - 1)
	if dof < 1 {
		return []float64{math.NaN()}, math.NaN(), nil
	}
	var x2 float64
	for r := range obs {
		for c, v := range obs[r] {
			e := rowTot[r] * colTot[c] / n
			if e > 0 {
				x2 += (v - e) * (v - e) / e
			}
		}
	}
	p := distuv.ChiSquared{K: float64(dof)}.Survival(x2)
	return []float64{x2}, p, nil
}

// infogainScore estimates the mutual information between the feature's
// genotype codes and the discrete target, in nats. The plug-in estimator over
// the discrete joint distribution is deterministic, so reproducibility needs
// no seed here.
func infogainScore(feature, target []float64) ([]float64, float64, error) {
	mi := discreteMI(discretize(feature), discretize(target))
	return []float64{mi}, math.NaN(), nil
}

// splitByCarrier groups target values by feature value: zero (reference) vs
// non-zero (carrier).
func splitByCarrier(feature, target []float64) (g0, g1 []float64) {
	for i, v := range feature {
		if v == 0 {
			g0 = append(g0, target[i])
		} else {
			g1 = append(g1, target[i])
		}
	}
	return g0, g1
}

// mwuScore computes the Mann-Whitney U statistic in both directions and the
// two-sided p-value from the tie-corrected normal approximation. When either
// comparison group is empty the statistic is mathematically undefined and
// every output is NaN; that is a sentinel, not an error.
func mwuScore(feature, target []float64) ([]float64, float64, error) {
	g0, g1 := splitByCarrier(feature, target)
	if len(g0) == 0 || len(g1) == 0 {
		nan := math.NaN()
		return []float64{nan, nan, nan}, nan, nil
	}
	n0 := float64(len(g0))
	n1 := float64(len(g1))
	combined := make([]float64, 0, len(g0)+len(g1))
	combined = append(combined, g0...)
	combined = append(combined, g1...)
	ranks, tieTerm := midranks(combined)
	var r0 float64
	for i := range g0 {
		r0 += ranks[i]
	}
	u1 := r0 - n0*(n0+1)/2
	u2 := n0*n1 - u1

	n := n0 + n1
	p := math.NaN()
	sigma2 := n0 * n1 / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if sigma2 > 0 {
		u := math.Max(u1, u2)
		z := (u - n0*n1/2 - 0.5) / math.Sqrt(sigma2)
		p = math.Min(2*distuv.UnitNormal.Survival(z), 1)
	}
	return []float64{u1, u2, math.Min(u1, u2)}, p, nil
}

// ttestScore computes Welch's two-sample t statistic over the same carrier
// split as mwuScore, with the absolute value as the ranking score. Same
// empty-group sentinel policy.
func ttestScore(feature, target []float64) ([]float64, float64, error) {
	g0, g1 := splitByCarrier(feature, target)
	nan := math.NaN()
	if len(g0) < 2 || len(g1) < 2 {
		return []float64{nan, nan}, nan, nil
	}
	m0, v0 := stat.MeanVariance(g0, nil)
	m1, v1 := stat.MeanVariance(g1, nil)
	n0 := float64(len(g0))
	n1 := float64(len(g1))
	se2 := v0/n0 + v1/n1
	if se2 == 0 {
		return []float64{nan, nan}, nan, nil
	}
	t := (m0 - m1) / math.Sqrt(se2)
	// Welch-Satterthwaite degrees of freedom.
	df := se2 * se2 / ((v0/n0)*(v0/n0)/(n0-1) + (v1/n1)*(v1/n1)/(n1-1))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	return []float64{t, math.Abs(t)}, p, nil
}

// midranks assigns average ranks (1-based) to vals, averaging within tie
// groups, and returns the tie correction term sum(t^3-t) over tie groups.
func midranks(vals []float64) ([]float64, float64) {
	n := len(vals)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })
	ranks := make([]float64, n)
	var tieTerm float64
	for i := 0; i < n; {
		j := i
		for j < n && vals[idx[j]] == vals[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}
	return ranks, tieTerm
}
