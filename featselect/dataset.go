package featselect

import (
	"fmt"
)

// Dataset is an in-memory genotype frame: one row per subject, one column per
// SNP, plus any fixed outcome/covariate columns that are excluded from
// scoring. Feature columns hold small non-negative genotype codes (commonly
// {0,1,2} or binarized {0,1}); fixed columns may be real-valued.
//
// A Dataset is never mutated after construction; bootstrap iterations work on
// materialized subsets (see Subset) and workers only ever read.
type Dataset struct {
	idColumn string
	ids      []int64

	names []string // feature columns, canonical order
	cols  map[string][]float64

	fixedNames []string
	fixed      map[string][]float64
}

// NewDataset creates a frame with the given subject-id column. Subject ids
// must be unique.
func NewDataset(idColumn string, ids []int64) (*Dataset, error) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("featselect: duplicate subject id %d", id)
		}
		seen[id] = struct{}{}
	}
	return &Dataset{
		idColumn: idColumn,
		ids:      append([]int64(nil), ids...),
		cols:     map[string][]float64{},
		fixed:    map[string][]float64{},
	}, nil
}

func (d *Dataset) checkNewColumn(name string, vals []float64) error {
	if name == d.idColumn {
		return fmt.Errorf("featselect: column %q collides with the subject-id column", name)
	}
	if _, ok := d.cols[name]; ok {
		return fmt.Errorf("featselect: duplicate column %q", name)
	}
	if _, ok := d.fixed[name]; ok {
		return fmt.Errorf("featselect: duplicate column %q", name)
	}
	if len(vals) != len(d.ids) {
		return fmt.Errorf("featselect: column %q has %d values, want %d", name, len(vals), len(d.ids))
	}
	return nil
}

// AddFeature appends a scoreable feature column.
func (d *Dataset) AddFeature(name string, vals []float64) error {
	if err := d.checkNewColumn(name, vals); err != nil {
		return err
	}
	d.names = append(d.names, name)
	d.cols[name] = vals
	return nil
}

// AddFixed appends an outcome/covariate column. Fixed columns are carried
// through Subset but never scored.
func (d *Dataset) AddFixed(name string, vals []float64) error {
	if err := d.checkNewColumn(name, vals); err != nil {
		return err
	}
	d.fixedNames = append(d.fixedNames, name)
	d.fixed[name] = vals
	return nil
}

func (d *Dataset) NumRows() int { return len(d.ids) }

func (d *Dataset) IDColumn() string { return d.idColumn }

// SubjectIDs returns the subject-id column. Callers must not mutate it.
func (d *Dataset) SubjectIDs() []int64 { return d.ids }

// FeatureNames returns the feature columns in canonical order. Callers must
// not mutate the returned slice.
func (d *Dataset) FeatureNames() []string { return d.names }

func (d *Dataset) FixedNames() []string { return d.fixedNames }

// Feature returns a feature column by name.
func (d *Dataset) Feature(name string) ([]float64, bool) {
	c, ok := d.cols[name]
	return c, ok
}

// Column returns a feature or fixed column by name.
func (d *Dataset) Column(name string) ([]float64, bool) {
	if c, ok := d.cols[name]; ok {
		return c, true
	}
	c, ok := d.fixed[name]
	return c, ok
}

// Subset materializes the sub-dataset obtained by joining on the given
// subject ids, repeating rows for repeated ids. The result owns its storage.
func (d *Dataset) Subset(ids []int64) (*Dataset, error) {
	rowOf := make(map[int64]int, len(d.ids))
	for i, id := range d.ids {
		rowOf[id] = i
	}
	rows := make([]int, len(ids))
	for i, id := range ids {
		r, ok := rowOf[id]
		if !ok {
			return nil, fmt.Errorf("featselect: subject id %d not in dataset", id)
		}
		rows[i] = r
	}
	sub := &Dataset{
		idColumn:   d.idColumn,
		ids:        append([]int64(nil), ids...),
		names:      d.names,
		cols:       make(map[string][]float64, len(d.cols)),
		fixedNames: d.fixedNames,
		fixed:      make(map[string][]float64, len(d.fixed)),
	}
	gather := func(src []float64) []float64 {
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = src[r]
		}
		return out
	}
	for name, c := range d.cols {
		sub.cols[name] = gather(c)
	}
	for name, c := range d.fixed {
		sub.fixed[name] = gather(c)
	}
	return sub, nil
}

// Frequencies counts, per feature, the subjects carrying a non-reference
// (non-zero) genotype value. Computed once on the full dataset and reused for
// masking in every bootstrap.
func (d *Dataset) Frequencies() map[string]int {
	freq := make(map[string]int, len(d.names))
	for _, name := range d.names {
		n := 0
		for _, v := range d.cols[name] {
			if v != 0 {
				n++
			}
		}
		freq[name] = n
	}
	return freq
}

// MaskRare returns the features that survive the frequency filter, in
// canonical order. A feature is masked when its minority group size, the
// carrier count or its complement, is below threshold. The filter is a pure
// function of the given frequency map, so applying it to every bootstrap with
// the full-dataset frequencies keeps the scored feature set stable.
func (d *Dataset) MaskRare(freq map[string]int, threshold int) []string {
	n := d.NumRows()
	kept := make([]string, 0, len(d.names))
	for _, name := range d.names {
		f := freq[name]
		if f < threshold || n-f < threshold {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}
