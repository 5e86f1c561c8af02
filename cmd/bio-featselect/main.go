package main

/*
bio-featselect ranks SNP columns of a tabular genotype dataset by statistical
association with a target column, stabilizing the ranking with bootstrap
resampling. It writes one score table per (bootstrap, method), a final
aggregate ranking, and a bootstrap membership table that can be replayed to
reproduce a run exactly.
*/

import (
	"fmt"
	"strings"

	"github.com/aylab/bio/featselect"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"v.io/x/lib/cmdline"
)

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "run",
		Short:    "Run bootstrapped feature selection on a dataset",
		ArgsName: "dataset.tsv[.gz]",
	}
	flags := runFlags{
		configPath:    cmd.Flags.String("config", "", "Optional TOML run manifest; explicit flags override it"),
		target:        cmd.Flags.String("target", "", "Target (outcome) column to score against; required"),
		methods:       cmd.Flags.String("methods", "chi2", "Comma-separated scoring methods (chi2, infogain, mwu, ttest, lasso, mrmr, jmi)"),
		out:           cmd.Flags.String("out", "featselect", "Output path prefix"),
		idColumn:      cmd.Flags.String("id-col", "ID_1", "Subject-id column name"),
		fixedColumns:  cmd.Flags.String("fixed", "", "Comma-separated non-feature columns besides the id and target columns"),
		nBootstraps:   cmd.Flags.Int("n-bootstraps", featselect.DefaultOpts.NBootstraps, "Number of bootstrap resamples"),
		nSamples:      cmd.Flags.Int("n-samples", 0, "Subjects per resample; 0 = dataset size"),
		stratify:      cmd.Flags.String("stratify", "", "Column whose class proportions each resample preserves"),
		freqThreshold: cmd.Flags.Int("freq-threshold", 0, "Mask features whose minority carrier count is below this"),
		kBest:         cmd.Flags.Int("k-best", 0, "Top per-bootstrap scores summed per feature; 0 = n-bootstraps-1"),
		parallelism:   cmd.Flags.Int("parallelism", 0, "Maximum number of simultaneous scoring jobs; 0 = all CPUs"),
		seed:          cmd.Flags.Int64("seed", featselect.DefaultOpts.Seed, "Bootstrap RNG seed"),
		replayPath:    cmd.Flags.String("bootstraps", "", "Replay the bootstrap membership table at this path instead of sampling"),
		nSelected:     cmd.Flags.Int("n-selected", 0, "Selected-feature count for lasso/mrmr/jmi"),
		tolerance:     cmd.Flags.Float64("tolerance", 0.1, "Fractional tolerance band around -n-selected for the lasso search"),
		maxSearchIter: cmd.Flags.Int("max-search-iter", 0, "Iteration bound for the lasso regularization search; 0 = default"),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("run takes one dataset argument, but got %v", argv)
		}
		return runSelect(flags, argv[0])
	})
	return cmd
}

func newCmdAggregate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "aggregate",
		Short: `Re-aggregate previously written score tables.
Reads the per-bootstrap tables written by 'run' and recomputes the final ranking without rescoring.`,
		ArgsName: "dataset.tsv[.gz]",
	}
	flags := aggregateFlags{
		target:        cmd.Flags.String("target", "", "Target column used by the original run; required"),
		methods:       cmd.Flags.String("methods", "", "Comma-separated methods of the original run; required"),
		out:           cmd.Flags.String("out", "featselect", "Path prefix the score tables were written under; also the output prefix"),
		idColumn:      cmd.Flags.String("id-col", "ID_1", "Subject-id column name"),
		fixedColumns:  cmd.Flags.String("fixed", "", "Comma-separated non-feature columns besides the id and target columns"),
		nBootstraps:   cmd.Flags.Int("n-bootstraps", featselect.DefaultOpts.NBootstraps, "Number of bootstraps in the original run"),
		freqThreshold: cmd.Flags.Int("freq-threshold", 0, "Frequency threshold of the original run"),
		kBest:         cmd.Flags.Int("k-best", 0, "Top per-bootstrap scores summed per feature; 0 = n-bootstraps-1"),
		gzip:          cmd.Flags.Bool("gz", false, "Score tables were written gzipped"),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("aggregate takes one dataset argument, but got %v", argv)
		}
		return runAggregate(flags, argv[0])
	})
	return cmd
}

func parseMethods(s string) ([]featselect.Method, error) {
	if s == "" {
		return nil, fmt.Errorf("no methods given")
	}
	var methods []featselect.Method
	for _, name := range strings.Split(s, ",") {
		m, err := featselect.ParseMethod(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func splitColumns(s string) []string {
	if s == "" {
		return nil
	}
	cols := strings.Split(s, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func main() {
	shutdown := grail.Init()
	defer shutdown()
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:     "bio-featselect",
		Short:    "Bootstrapped SNP feature selection",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdRun(),
			newCmdAggregate(),
		},
	})
}
