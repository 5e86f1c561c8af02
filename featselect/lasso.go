package featselect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Adaptive L1 regularization-path search: adjust the penalty strength until
// the number of non-zero coefficients lands inside the tolerance band around
// the requested count. This is discrete hill climbing with a decaying step;
// convergence is not guaranteed, so the loop is bounded and overrunning the
// bound is a distinct, fatal error.

// SearchDidNotConvergeError reports that the regularization search exhausted
// its iteration bound without landing in the target band.
type SearchDidNotConvergeError struct {
	Iterations int
	Target     int
	Selected   int // non-zero count at the last fit
}

func (e *SearchDidNotConvergeError) Error() string {
	return fmt.Sprintf("featselect: lasso search did not converge after %d iterations (want %d features, last fit selected %d)",
		e.Iterations, e.Target, e.Selected)
}

type lassoOpts struct {
	target        int     // desired non-zero coefficient count
	tolerance     float64 // fractional band half-width around target
	maxSearchIter int
}

const (
	defaultSearchIter = 50
	lassoFitIter      = 1000
	lassoFitTol       = 1e-5
	minAlpha          = 1e-8
)

// lassoSelect fits an L1-regularized model, searching the penalty strength
// for a coefficient count in [target*(1-tol), target*(1+tol)]. A binary
// target gets the logistic variant, anything else the linear one. Returns one
// coefficient per feature column (zero for unselected features).
func lassoSelect(features [][]float64, target []float64, opts lassoOpts) ([]float64, error) {
	if opts.target <= 0 {
		return nil, fmt.Errorf("featselect: lasso requires a positive selected-feature count, got %d", opts.target)
	}
	maxIter := opts.maxSearchIter
	if maxIter <= 0 {
		maxIter = defaultSearchIter
	}
	lower := int(math.Ceil(float64(opts.target) * (1 - opts.tolerance)))
	upper := int(math.Floor(float64(opts.target) * (1 + opts.tolerance)))
	if upper < opts.target {
		upper = opts.target
	}
	if lower > opts.target {
		lower = opts.target
	}

	xt, colOK := standardized(features)
	logistic := isBinary(target)
	y := make([]float64, len(target))
	copy(y, target)
	if !logistic {
		// Center the response for the linear variant; the intercept is then
		// implicitly zero and stays unpenalized.
		mean := floats.Sum(y) / float64(len(y))
		for i := range y {
			y[i] -= mean
		}
	}

	fit := func(alpha float64) []float64 {
		if logistic {
			return fitLassoLogistic(xt, colOK, y, alpha)
		}
		return fitLassoLinear(xt, colOK, y, alpha)
	}

	alpha, step := 1.0, 0.5
	lastDir := 0
	doubled := false
	var coefs []float64
	selected := 0
	for iter := 0; iter < maxIter; iter++ {
		coefs = fit(alpha)
		selected = 0
		for _, c := range coefs {
			if c != 0 {
				selected++
			}
		}
		switch {
		case selected > upper:
			// Too many features: strengthen the penalty.
			if logistic {
				if lastDir == -1 && !doubled {
					step *= 2
					doubled = true
				} else {
					step /= 2
				}
				alpha += step
			} else {
				alpha += step
				step /= 2
			}
			lastDir = 1
		case selected < lower:
			alpha -= step
			step /= 2
			if alpha < minAlpha {
				alpha = minAlpha
			}
			lastDir = -1
		default:
			return coefs, nil
		}
	}
	return nil, &SearchDidNotConvergeError{Iterations: maxIter, Target: opts.target, Selected: selected}
}

func isBinary(target []float64) bool {
	for _, v := range target {
		if v != 0 && v != 1 {
			return false
		}
	}
	return true
}

// standardized returns the feature matrix transposed (p x n) with each column
// of the original matrix scaled to zero mean and unit variance. colOK marks
// columns with non-zero variance; constant columns stay zero and can never be
// selected.
func standardized(features [][]float64) (*mat.Dense, []bool) {
	p := len(features)
	n := len(features[0])
	xt := mat.NewDense(p, n, nil)
	colOK := make([]bool, p)
	for j, col := range features {
		mean := floats.Sum(col) / float64(n)
		var ss float64
		for _, v := range col {
			d := v - mean
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(n))
		if sd == 0 {
			continue
		}
		colOK[j] = true
		row := xt.RawRowView(j)
		for i, v := range col {
			row[i] = (v - mean) / sd
		}
	}
	return xt, colOK
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	}
	return 0
}

// fitLassoLinear runs cyclic coordinate descent on the standardized design.
// With unit-variance columns each coordinate update is a plain soft-threshold.
func fitLassoLinear(xt *mat.Dense, colOK []bool, y []float64, alpha float64) []float64 {
	p, n := xt.Dims()
	fn := float64(n)
	b := make([]float64, p)
	r := make([]float64, n)
	copy(r, y)
	for iter := 0; iter < lassoFitIter; iter++ {
		var maxDelta float64
		for j := 0; j < p; j++ {
			if !colOK[j] {
				continue
			}
			xj := xt.RawRowView(j)
			rho := floats.Dot(xj, r)/fn + b[j] // columns have unit variance
			nb := softThreshold(rho, alpha)
			if nb != b[j] {
				floats.AddScaled(r, b[j]-nb, xj)
				if d := math.Abs(nb - b[j]); d > maxDelta {
					maxDelta = d
				}
				b[j] = nb
			}
		}
		if maxDelta < lassoFitTol {
			break
		}
	}
	return b
}

// fitLassoLogistic runs proximal gradient descent (ISTA) on the L1-penalized
// logistic loss, with an unpenalized intercept.
func fitLassoLogistic(xt *mat.Dense, colOK []bool, y []float64, alpha float64) []float64 {
	p, n := xt.Dims()
	fn := float64(n)
	// Lipschitz bound for the logistic gradient: lambda_max(X^T X)/(4n),
	// bounded above by the squared Frobenius norm.
	var frob2 float64
	for j := 0; j < p; j++ {
		if colOK[j] {
			xj := xt.RawRowView(j)
			frob2 += floats.Dot(xj, xj)
		}
	}
	l := frob2 / (4 * fn)
	if l <= 0 {
		return make([]float64, p)
	}
	step := 1 / l

	w := make([]float64, p)
	var b float64
	margin := make([]float64, n)
	grad := make([]float64, n) // p_i - y_i
	for iter := 0; iter < lassoFitIter; iter++ {
		for i := range margin {
			margin[i] = b
		}
		for j := 0; j < p; j++ {
			if w[j] != 0 {
				floats.AddScaled(margin, w[j], xt.RawRowView(j))
			}
		}
		for i := range grad {
			grad[i] = 1/(1+math.Exp(-margin[i])) - y[i]
		}
		var maxDelta float64
		gb := floats.Sum(grad) / fn
		b -= step * gb
		if d := math.Abs(step * gb); d > maxDelta {
			maxDelta = d
		}
		for j := 0; j < p; j++ {
			if !colOK[j] {
				continue
			}
			gj := floats.Dot(xt.RawRowView(j), grad) / fn
			nw := softThreshold(w[j]-step*gj, step*alpha)
			if d := math.Abs(nw - w[j]); d > maxDelta {
				maxDelta = d
			}
			w[j] = nw
		}
		if maxDelta < lassoFitTol {
			break
		}
	}
	return w
}
