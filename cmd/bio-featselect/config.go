package main

import (
	"github.com/BurntSushi/toml"
)

// runConfig is the TOML run manifest accepted by 'run -config'. Flag values
// still win when set explicitly; the manifest fills the rest.
type runConfig struct {
	Target        string  `toml:"target"`
	Methods       string  `toml:"methods"`
	Out           string  `toml:"out"`
	IDColumn      string  `toml:"id_column"`
	FixedColumns  string  `toml:"fixed_columns"`
	NBootstraps   int     `toml:"n_bootstraps"`
	NSamples      int     `toml:"n_samples"`
	Stratify      string  `toml:"stratify_column"`
	FreqThreshold int     `toml:"freq_threshold"`
	KBest         int     `toml:"k_best"`
	Parallelism   int     `toml:"parallelism"`
	Seed          int64   `toml:"seed"`
	ReplayPath    string  `toml:"bootstraps_file"`
	NSelected     int     `toml:"n_selected_features"`
	Tolerance     float64 `toml:"tolerance"`
	MaxSearchIter int     `toml:"max_search_iter"`
}

// applyConfig loads the manifest and copies each value into its flag unless
// the flag already differs from its default (explicitly set flags win).
func applyConfig(path string, flags *runFlags) error {
	var cfg runConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return err
	}
	setString := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if *dst == 0 && v != 0 {
			*dst = v
		}
	}
	setString(flags.target, cfg.Target)
	if cfg.Methods != "" && *flags.methods == "chi2" {
		*flags.methods = cfg.Methods
	}
	if cfg.Out != "" && *flags.out == "featselect" {
		*flags.out = cfg.Out
	}
	if cfg.IDColumn != "" && *flags.idColumn == "ID_1" {
		*flags.idColumn = cfg.IDColumn
	}
	setString(flags.fixedColumns, cfg.FixedColumns)
	if cfg.NBootstraps != 0 {
		*flags.nBootstraps = cfg.NBootstraps
	}
	setInt(flags.nSamples, cfg.NSamples)
	setString(flags.stratify, cfg.Stratify)
	setInt(flags.freqThreshold, cfg.FreqThreshold)
	setInt(flags.kBest, cfg.KBest)
	setInt(flags.parallelism, cfg.Parallelism)
	if cfg.Seed != 0 {
		*flags.seed = cfg.Seed
	}
	setString(flags.replayPath, cfg.ReplayPath)
	setInt(flags.nSelected, cfg.NSelected)
	if cfg.Tolerance != 0 {
		*flags.tolerance = cfg.Tolerance
	}
	setInt(flags.maxSearchIter, cfg.MaxSearchIter)
	return nil
}
