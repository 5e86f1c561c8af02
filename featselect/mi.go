package featselect

import (
	"math"
)

// Discrete information-theoretic estimators backing the infogain scorer and
// the mRMR/JMI selectors. Genotype codes and discrete outcomes both have tiny
// alphabets, so plug-in estimates over dense count tables are exact enough
// and deterministic.

// discretize maps column values to consecutive codes 0..k-1.
func discretize(vals []float64) []int {
	codeOf := map[float64]int{}
	out := make([]int, len(vals))
	for i, v := range vals {
		c, ok := codeOf[v]
		if !ok {
			c = len(codeOf)
			codeOf[v] = c
		}
		out[i] = c
	}
	return out
}

func alphabetSize(xs []int) int {
	k := 0
	for _, x := range xs {
		if x >= k {
			k = x + 1
		}
	}
	return k
}

// discreteMI returns I(X;Y) in nats.
func discreteMI(x, y []int) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	kx := alphabetSize(x)
	ky := alphabetSize(y)
	joint := make([]float64, kx*ky)
	px := make([]float64, kx)
	py := make([]float64, ky)
	for i := range x {
		joint[x[i]*ky+y[i]]++
		px[x[i]]++
		py[y[i]]++
	}
	var mi float64
	for xi := 0; xi < kx; xi++ {
		for yi := 0; yi < ky; yi++ {
			pxy := joint[xi*ky+yi]
			if pxy == 0 {
				continue
			}
			mi += pxy / n * math.Log(pxy*n/(px[xi]*py[yi]))
		}
	}
	if mi < 0 {
		mi = 0
	}
	return mi
}

// discreteCondMI returns I(X;Y|Z) in nats.
func discreteCondMI(x, y, z []int) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	kz := alphabetSize(z)
	// Partition rows by z and sum stratum MIs weighted by p(z).
	strata := make([][]int, kz)
	for i, zi := range z {
		strata[zi] = append(strata[zi], i)
	}
	var cmi float64
	for _, rows := range strata {
		if len(rows) == 0 {
			continue
		}
		subx := make([]int, len(rows))
		suby := make([]int, len(rows))
		for j, r := range rows {
			subx[j] = x[r]
			suby[j] = y[r]
		}
		cmi += float64(len(rows)) / float64(n) * discreteMI(subx, suby)
	}
	return cmi
}

// selectLCSI runs forward selection under the linear combination of Shannon
// information terms (Brown et al., JMLR 2012):
//
//	J(f) = I(f;y) - 1/|S| * sum_{s in S} (I(f;s) - gamma*I(f;s|y))
//
// with gamma=0 for mRMR and gamma=1 for JMI. Returns the indices of the k
// chosen features in selection order. Runs single-threaded: the criterion
// consumes the whole feature matrix at once.
func selectLCSI(features [][]float64, target []float64, k int, gamma float64) []int {
	p := len(features)
	if k > p {
		k = p
	}
	if k <= 0 {
		return nil
	}
	disc := make([][]int, p)
	for i, f := range features {
		disc[i] = discretize(f)
	}
	y := discretize(target)

	relevance := make([]float64, p)
	for i := range disc {
		relevance[i] = discreteMI(disc[i], y)
	}

	selected := make([]int, 0, k)
	chosen := make([]bool, p)
	// Running sums of I(f;s) and I(f;s|y) over the selected set.
	redundancy := make([]float64, p)
	conditional := make([]float64, p)

	for len(selected) < k {
		best := -1
		bestJ := math.Inf(-1)
		for i := 0; i < p; i++ {
			if chosen[i] {
				continue
			}
			j := relevance[i]
			if m := float64(len(selected)); m > 0 {
				j -= (redundancy[i] - gamma*conditional[i]) / m
			}
			if j > bestJ {
				bestJ = j
				best = i
			}
		}
		chosen[best] = true
		selected = append(selected, best)
		for i := 0; i < p; i++ {
			if chosen[i] {
				continue
			}
			redundancy[i] += discreteMI(disc[i], disc[best])
			if gamma != 0 {
				conditional[i] += discreteCondMI(disc[i], disc[best], y)
			}
		}
	}
	return selected
}
