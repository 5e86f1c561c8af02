package main

import (
	"fmt"

	"github.com/aylab/bio/featselect"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

type runFlags struct {
	configPath    *string
	target        *string
	methods       *string
	out           *string
	idColumn      *string
	fixedColumns  *string
	nBootstraps   *int
	nSamples      *int
	stratify      *string
	freqThreshold *int
	kBest         *int
	parallelism   *int
	seed          *int64
	replayPath    *string
	nSelected     *int
	tolerance     *float64
	maxSearchIter *int
}

func runSelect(flags runFlags, datasetPath string) error {
	if *flags.configPath != "" {
		if err := applyConfig(*flags.configPath, &flags); err != nil {
			return err
		}
	}
	if *flags.target == "" {
		return fmt.Errorf("-target is required")
	}
	methods, err := parseMethods(*flags.methods)
	if err != nil {
		return err
	}

	ctx := vcontext.Background()
	fixed := append(splitColumns(*flags.fixedColumns), *flags.target)
	if *flags.stratify != "" && *flags.stratify != *flags.target {
		fixed = append(fixed, *flags.stratify)
	}
	data, err := featselect.ReadDataset(ctx, datasetPath, *flags.idColumn, fixed)
	if err != nil {
		return err
	}
	log.Printf("loaded %s: %d subjects, %d features", datasetPath, data.NumRows(), len(data.FeatureNames()))

	opts := featselect.Opts{
		NBootstraps:    *flags.nBootstraps,
		NSamples:       *flags.nSamples,
		StratifyColumn: *flags.stratify,
		FreqThreshold:  *flags.freqThreshold,
		KBest:          *flags.kBest,
		Parallelism:    *flags.parallelism,
		Seed:           *flags.seed,
	}
	if *flags.replayPath != "" {
		if opts.Replay, err = featselect.ReadBootstraps(ctx, *flags.replayPath); err != nil {
			return err
		}
		log.Printf("replaying %d bootstraps from %s", len(opts.Replay), *flags.replayPath)
	}
	specs := make([]featselect.MethodSpec, len(methods))
	for i, m := range methods {
		specs[i] = featselect.MethodSpec{
			Method:        m,
			NSelected:     *flags.nSelected,
			Tolerance:     *flags.tolerance,
			MaxSearchIter: *flags.maxSearchIter,
		}
	}

	res, err := featselect.NewSelector(data, opts).Run(ctx, *flags.target, specs)
	if err != nil {
		return err
	}

	for b, run := range res.Bootstraps {
		for _, tbl := range run.Tables {
			path := fmt.Sprintf("%s_%v_%d.tsv", *flags.out, tbl.Method, b+1)
			if err := featselect.WriteScoreTable(ctx, path, tbl); err != nil {
				return err
			}
		}
	}
	samples := make([][]int64, len(res.Bootstraps))
	for b, run := range res.Bootstraps {
		samples[b] = run.Sample
	}
	if err := featselect.WriteBootstraps(ctx, *flags.out+"_bootstraps.tsv", samples); err != nil {
		return err
	}
	aggPath := *flags.out + ".tsv"
	if err := featselect.WriteAggregate(ctx, aggPath, res.Aggregate); err != nil {
		return err
	}
	log.Printf("wrote aggregate ranking to %s", aggPath)
	return nil
}

type aggregateFlags struct {
	target        *string
	methods       *string
	out           *string
	idColumn      *string
	fixedColumns  *string
	nBootstraps   *int
	freqThreshold *int
	kBest         *int
	gzip          *bool
}

// runAggregate rebuilds the final ranking from score tables already on disk.
// The dataset is still needed for the canonical feature order, frequencies,
// and the mask; a reordered or stale table fails the aggregator's
// canonical-order check.
func runAggregate(flags aggregateFlags, datasetPath string) error {
	if *flags.target == "" {
		return fmt.Errorf("-target is required")
	}
	methods, err := parseMethods(*flags.methods)
	if err != nil {
		return err
	}

	ctx := vcontext.Background()
	fixed := append(splitColumns(*flags.fixedColumns), *flags.target)
	data, err := featselect.ReadDataset(ctx, datasetPath, *flags.idColumn, fixed)
	if err != nil {
		return err
	}

	suffix := ".tsv"
	if *flags.gzip {
		suffix = ".tsv.gz"
	}
	tables := make(map[featselect.Method][]*featselect.ScoreTable, len(methods))
	for _, m := range methods {
		for b := 1; b <= *flags.nBootstraps; b++ {
			path := fmt.Sprintf("%s_%v_%d%s", *flags.out, m, b, suffix)
			tbl, err := featselect.ReadScoreTable(ctx, path, m)
			if err != nil {
				return err
			}
			tables[m] = append(tables[m], tbl)
		}
	}

	agg, err := featselect.AggregateScoreTables(data, methods, tables, *flags.freqThreshold, *flags.kBest)
	if err != nil {
		return err
	}
	return featselect.WriteAggregate(ctx, *flags.out+".tsv", agg)
}
