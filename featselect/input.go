package featselect

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Readers for the TSV boundary: datasets, saved bootstrap tables, and
// previously written score tables. Column sets here are dynamic (one column
// per SNP, or per bootstrap), so rows are parsed by header position rather
// than struct tags.

func openTable(ctx context.Context, path string) (*csv.Reader, func(*error), error) {
	src, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	var r io.Reader = src.Reader(ctx)
	var gz *gzip.Reader
	if strings.HasSuffix(path, ".gz") {
		if gz, err = gzip.NewReader(r); err != nil {
			file.CloseAndReport(ctx, src, &err)
			return nil, nil, err
		}
		r = gz
	}
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.ReuseRecord = true
	closer := func(err *error) {
		if gz != nil {
			if e := gz.Close(); e != nil && *err == nil {
				*err = e
			}
		}
		file.CloseAndReport(ctx, src, err)
	}
	return cr, closer, nil
}

// ReadDataset loads a tabular dataset: one row per subject, a subject-id
// column named idColumn, and one column per feature. Columns listed in
// fixedColumns (e.g. the outcome) are loaded as fixed columns and excluded
// from scoring.
func ReadDataset(ctx context.Context, path, idColumn string, fixedColumns []string) (d *Dataset, err error) {
	cr, closer, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closer(&err)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", path)
	}
	header = append([]string(nil), header...)
	idIdx := -1
	for i, name := range header {
		if name == idColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, errors.Errorf("%s: subject-id column %q not found", path, idColumn)
	}
	fixed := make(map[string]bool, len(fixedColumns))
	for _, name := range fixedColumns {
		fixed[name] = true
	}

	var ids []int64
	cols := make([][]float64, len(header))
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		for i, cell := range row {
			if i == idIdx {
				id, err := strconv.ParseInt(cell, 10, 64)
				if err != nil {
					return nil, errors.Wrapf(err, "%s:%d: bad subject id", path, line)
				}
				ids = append(ids, id)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d: column %s", path, line, header[i])
			}
			cols[i] = append(cols[i], v)
		}
	}

	if d, err = NewDataset(idColumn, ids); err != nil {
		return nil, err
	}
	for i, name := range header {
		if i == idIdx {
			continue
		}
		if fixed[name] {
			err = d.AddFixed(name, cols[i])
		} else {
			err = d.AddFeature(name, cols[i])
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ReadBootstraps reloads a reproducibility table written by WriteBootstraps:
// one column per bootstrap, each an ordered subject-id list with
// multiplicities preserved.
func ReadBootstraps(ctx context.Context, path string) (samples [][]int64, err error) {
	cr, closer, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closer(&err)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", path)
	}
	samples = make([][]int64, len(header))
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		for i, cell := range row {
			id, err := strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s:%d: bad subject id", path, line)
			}
			samples[i] = append(samples[i], id)
		}
	}
	return samples, nil
}

// ReadScoreTable reloads a per-bootstrap score table written by
// WriteScoreTable. Feature order is preserved as stored; the aggregator's
// canonical-order check is the guard against stale or reordered files.
func ReadScoreTable(ctx context.Context, path string, method Method) (t *ScoreTable, err error) {
	cr, closer, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer closer(&err)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", path)
	}
	want := append([]string{"SNP"}, method.ScoreColumns()...)
	if method.HasPValue() {
		want = append(want, "p_val", "p_val_adj")
	}
	want = append(want, "frequency")
	if len(header) != len(want) {
		return nil, errors.Errorf("%s: %d columns, want %d for method %v", path, len(header), len(want), method)
	}
	for i := range want {
		if header[i] != want[i] {
			return nil, errors.Errorf("%s: column %d is %q, want %q", path, i, header[i], want[i])
		}
	}

	t = &ScoreTable{Method: method}
	nScores := len(method.ScoreColumns())
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		rec := ScoreRecord{Feature: row[0], Values: make([]float64, nScores)}
		fields := row[1:]
		for i := 0; i < nScores; i++ {
			if rec.Values[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, line)
			}
		}
		fields = fields[nScores:]
		if method.HasPValue() {
			if rec.PValue, err = strconv.ParseFloat(fields[0], 64); err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, line)
			}
			if rec.PValueAdj, err = strconv.ParseFloat(fields[1], 64); err != nil {
				return nil, errors.Wrapf(err, "%s:%d", path, line)
			}
			fields = fields[2:]
		} else {
			rec.PValue = math.NaN()
			rec.PValueAdj = math.NaN()
		}
		if rec.Frequency, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, line)
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}
