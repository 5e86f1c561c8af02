// Package featselect ranks genetic variants by statistical association with
// a phenotype, stabilizing the ranking with bootstrap resampling. One
// Selector.Run call draws (or replays) bootstrap samples, masks rare
// features against full-dataset frequencies, scores the surviving features
// per method, FDR-corrects p-values, and folds everything into one
// top-k-best aggregate table plus a reproducibility record of the samples.
package featselect

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/floats"
)

// Opts configures one Selector. Fields mirror the bio-featselect flags.
type Opts struct {
	// NBootstraps is the number of resamples; ignored when Replay is set.
	NBootstraps int
	// NSamples is the size of each resample; 0 means the dataset size.
	NSamples int
	// StratifyColumn, when non-empty, preserves that column's class
	// proportions in every resample.
	StratifyColumn string
	// FreqThreshold masks features whose minority carrier count in the full
	// dataset is below it.
	FreqThreshold int
	// KBest is the number of top per-bootstrap scores summed per feature
	// during aggregation; 0 means NBootstraps-1. Must not exceed the
	// bootstrap count.
	KBest int
	// Parallelism bounds the scoring worker pool; 0 means all CPUs.
	Parallelism int
	Seed        int64
	// Replay, when non-nil, skips random sampling and replays these
	// subject-id lists verbatim, one per bootstrap.
	Replay [][]int64
}

var DefaultOpts = Opts{
	NBootstraps: 10,
	Seed:        1,
}

// MethodSpec is one scoring method plus its per-method options.
type MethodSpec struct {
	Method Method
	// NSelected is the target feature count for lasso/mrmr/jmi. Required for
	// those methods.
	NSelected int
	// Tolerance is the fractional band around NSelected accepted by the
	// lasso search.
	Tolerance float64
	// MaxSearchIter bounds the lasso regularization search; 0 means the
	// package default.
	MaxSearchIter int
}

// BootstrapRun is one bootstrap iteration's sample and score tables (aligned
// with the Run specs).
type BootstrapRun struct {
	Sample []int64
	Tables []*ScoreTable
}

// Result is everything one Run emits: per-bootstrap tables, the final
// aggregate, and the reproducibility record.
type Result struct {
	Target      string
	AllFeatures []string // full feature set, canonical order
	Features    []string // masked feature set actually scored
	Frequencies map[string]int
	Bootstraps  []*BootstrapRun
	Aggregate   *Aggregate
}

// Selector owns the dataset and orchestrates bootstrapped scoring.
// Bootstraps and methods run sequentially; only per-feature scoring tasks
// within one (bootstrap, method) pair run concurrently.
type Selector struct {
	data *Dataset
	opts Opts
	rnd  *rand.Rand
}

func NewSelector(data *Dataset, opts Opts) *Selector {
	return &Selector{data: data, opts: opts, rnd: rand.New(rand.NewSource(opts.Seed))}
}

func (s *Selector) validate(target string, specs []MethodSpec) (nBoot, kBest int, err error) {
	if len(specs) == 0 {
		return 0, 0, errors.E("featselect: no scoring methods given")
	}
	if _, ok := s.data.Column(target); !ok {
		return 0, 0, errors.E("featselect: target column not in dataset:", target)
	}
	for _, spec := range specs {
		if spec.Method < 0 || spec.Method >= numMethods {
			return 0, 0, &UnknownMethodError{Name: spec.Method.String()}
		}
		if spec.Method.Multivariate() && spec.NSelected <= 0 {
			return 0, 0, errors.E("featselect: method requires the selected-feature count option:", spec.Method.String())
		}
	}
	nBoot = s.opts.NBootstraps
	if s.opts.Replay != nil {
		nBoot = len(s.opts.Replay)
	}
	if nBoot <= 0 {
		return 0, 0, errors.E("featselect: bootstrap count must be positive")
	}
	kBest = s.opts.KBest
	if kBest == 0 {
		kBest = nBoot - 1
	}
	if kBest < 1 || kBest > nBoot {
		return 0, 0, errors.E(fmt.Sprintf("featselect: k_best %d out of range [1,%d]", kBest, nBoot))
	}
	return nBoot, kBest, nil
}

// Run scores every unmasked feature against target with each spec across all
// bootstraps and aggregates the results. Any fatal error invalidates the
// whole call; there is no partial-results mode.
func (s *Selector) Run(ctx context.Context, target string, specs []MethodSpec) (*Result, error) {
	nBoot, kBest, err := s.validate(target, specs)
	if err != nil {
		return nil, err
	}

	freq := s.data.Frequencies()
	kept := s.data.MaskRare(freq, s.opts.FreqThreshold)
	if len(kept) == 0 {
		return nil, errors.E("featselect: frequency filter masked every feature")
	}
	log.Printf("featselect: %d/%d features pass the frequency filter (threshold %d)",
		len(kept), len(s.data.FeatureNames()), s.opts.FreqThreshold)

	res := &Result{
		Target:      target,
		AllFeatures: s.data.FeatureNames(),
		Features:    kept,
		Frequencies: freq,
	}
	tables := make(map[Method][]*ScoreTable, len(specs))
	for b := 0; b < nBoot; b++ {
		start := time.Now()
		var ids []int64
		if s.opts.Replay != nil {
			ids = s.opts.Replay[b]
		} else {
			if ids, err = bootstrapIDs(s.rnd, s.data, s.opts.NSamples, s.opts.StratifyColumn); err != nil {
				return nil, err
			}
		}
		sample, err := s.data.Subset(ids)
		if err != nil {
			return nil, errors.E(err, "featselect: materializing bootstrap sample")
		}
		log.Printf("featselect: bootstrap %d/%d sampled %d subjects in %s", b+1, nBoot, len(ids), time.Since(start))

		run := &BootstrapRun{Sample: ids}
		for _, spec := range specs {
			start := time.Now()
			var tbl *ScoreTable
			if spec.Method.Multivariate() {
				tbl, err = scoreMultivariate(sample, target, kept, spec)
			} else {
				frame, ferr := NewSharedFrame(sample, target, kept)
				if ferr != nil {
					return nil, ferr
				}
				tbl, err = ScoreFeatures(frame, spec.Method, s.opts.Parallelism)
			}
			if err != nil {
				return nil, err
			}
			if spec.Method.HasPValue() {
				applyBH(tbl.Records)
			}
			log.Printf("featselect: bootstrap %d/%d %v finished in %s", b+1, nBoot, spec.Method, time.Since(start))
			run.Tables = append(run.Tables, tbl)
			tables[spec.Method] = append(tables[spec.Method], tbl)
		}
		res.Bootstraps = append(res.Bootstraps, run)
	}

	methods := make([]Method, len(specs))
	for i, spec := range specs {
		methods[i] = spec.Method
	}
	if res.Aggregate, err = aggregateTables(methods, tables, res.AllFeatures, kept, freq, kBest); err != nil {
		return nil, err
	}
	return res, nil
}

// scoreMultivariate runs a whole-matrix selector (lasso, mrmr, jmi) on one
// bootstrap sample, single-threaded.
func scoreMultivariate(sample *Dataset, target string, features []string, spec MethodSpec) (*ScoreTable, error) {
	cols := make([][]float64, len(features))
	for i, name := range features {
		c, ok := sample.Feature(name)
		if !ok {
			return nil, errors.E("featselect: feature column not in sample:", name)
		}
		cols[i] = c
	}
	tcol, ok := sample.Column(target)
	if !ok {
		return nil, errors.E("featselect: target column not in sample:", target)
	}

	recs := make([]ScoreRecord, len(features))
	for i, name := range features {
		recs[i] = ScoreRecord{
			Feature:   name,
			PValue:    math.NaN(),
			PValueAdj: math.NaN(),
			Frequency: floats.Sum(cols[i]),
		}
	}
	switch spec.Method {
	case Lasso:
		coefs, err := lassoSelect(cols, tcol, lassoOpts{
			target:        spec.NSelected,
			tolerance:     spec.Tolerance,
			maxSearchIter: spec.MaxSearchIter,
		})
		if err != nil {
			return nil, err
		}
		for i := range recs {
			recs[i].Values = []float64{coefs[i], math.Abs(coefs[i])}
		}
	case MRMR, JMI:
		gamma := 0.0
		if spec.Method == JMI {
			gamma = 1.0
		}
		selected := selectLCSI(cols, tcol, spec.NSelected, gamma)
		indicator := make([]float64, len(features))
		for _, idx := range selected {
			indicator[idx] = 1
		}
		for i := range recs {
			recs[i].Values = []float64{indicator[i]}
		}
	default:
		return nil, errors.E("featselect: not a multivariate method:", spec.Method.String())
	}
	return &ScoreTable{Method: spec.Method, Records: recs}, nil
}
