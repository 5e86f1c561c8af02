package featselect

import (
	"context"
	"fmt"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
)

// TSV export of score tables, the aggregate ranking, and the bootstrap
// membership (reproducibility) table. Paths ending in .gz are gzipped
// transparently. In-memory tables stay in canonical masked-feature order and
// are written that way; the aggregator depends on that order when tables are
// read back.

func createTable(ctx context.Context, path string) (*tsv.Writer, func(*error), error) {
	dst, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	var gz *gzip.Writer
	w := dst.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(w)
		w = gz
	}
	tsvw := tsv.NewWriter(w)
	closer := func(err *error) {
		if e := tsvw.Flush(); e != nil && *err == nil {
			*err = e
		}
		if gz != nil {
			if e := gz.Close(); e != nil && *err == nil {
				*err = e
			}
		}
		file.CloseAndReport(ctx, dst, err)
	}
	return tsvw, closer, nil
}

func writeFloat(w *tsv.Writer, v float64) {
	w.WriteFloat64(v, 'g', -1)
}

// WriteScoreTable writes one (bootstrap, method) table. Columns: SNP, the
// method's score fields, p_val and p_val_adj for p-value methods, frequency.
func WriteScoreTable(ctx context.Context, path string, t *ScoreTable) (err error) {
	w, closer, err := createTable(ctx, path)
	if err != nil {
		return err
	}
	defer closer(&err)

	cols := append([]string{"SNP"}, t.Method.ScoreColumns()...)
	if t.Method.HasPValue() {
		cols = append(cols, "p_val", "p_val_adj")
	}
	cols = append(cols, "frequency")
	w.WriteString(strings.Join(cols, "\t"))
	if err = w.EndLine(); err != nil {
		return err
	}
	for i := range t.Records {
		r := &t.Records[i]
		w.WriteString(r.Feature)
		for _, v := range r.Values {
			writeFloat(w, v)
		}
		if t.Method.HasPValue() {
			writeFloat(w, r.PValue)
			writeFloat(w, r.PValueAdj)
		}
		writeFloat(w, r.Frequency)
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

// WriteAggregate writes the final ranking table: one row per feature of the
// full set, with per-method totals, NaN counts, averages, and the raw
// per-bootstrap score and p-value columns.
func WriteAggregate(ctx context.Context, path string, a *Aggregate) (err error) {
	w, closer, err := createTable(ctx, path)
	if err != nil {
		return err
	}
	defer closer(&err)

	cols := []string{"SNP", "frequency"}
	for _, m := range a.Methods {
		cols = append(cols, "total_"+m.String(), "nan_"+m.String(), "average_"+m.String())
	}
	for _, m := range a.Methods {
		for b := 1; b <= a.NBootstraps; b++ {
			cols = append(cols, fmt.Sprintf("%v_%d", m, b))
			if m.HasPValue() {
				cols = append(cols, fmt.Sprintf("p_val_%v_%d", m, b))
				cols = append(cols, fmt.Sprintf("p_val_adj_%v_%d", m, b))
			}
		}
	}
	w.WriteString(strings.Join(cols, "\t"))
	if err = w.EndLine(); err != nil {
		return err
	}

	for i := range a.Records {
		r := &a.Records[i]
		w.WriteString(r.Feature)
		w.WriteInt64(int64(r.Frequency))
		for _, m := range a.Methods {
			ma := r.ByMethod[m]
			writeFloat(w, ma.Total)
			w.WriteInt64(int64(ma.NaNCount))
			writeFloat(w, ma.Average)
		}
		for _, m := range a.Methods {
			ma := r.ByMethod[m]
			for b := 0; b < a.NBootstraps; b++ {
				writeFloat(w, ma.Scores[b])
				if m.HasPValue() {
					writeFloat(w, ma.PValues[b])
					writeFloat(w, ma.PValuesAdj[b])
				}
			}
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

// WriteBootstraps writes the reproducibility table: column bootstrap_i holds
// the ordered subject-id list (with repetition) of bootstrap i. The file
// round-trips through ReadBootstraps for exact replay.
func WriteBootstraps(ctx context.Context, path string, samples [][]int64) (err error) {
	w, closer, err := createTable(ctx, path)
	if err != nil {
		return err
	}
	defer closer(&err)

	if len(samples) == 0 {
		return nil
	}
	names := make([]string, len(samples))
	for i := range samples {
		if len(samples[i]) != len(samples[0]) {
			return fmt.Errorf("featselect: bootstrap %d has %d subjects, want %d", i+1, len(samples[i]), len(samples[0]))
		}
		names[i] = fmt.Sprintf("bootstrap_%d", i+1)
	}
	w.WriteString(strings.Join(names, "\t"))
	if err = w.EndLine(); err != nil {
		return err
	}
	for row := 0; row < len(samples[0]); row++ {
		for _, s := range samples {
			w.WriteInt64(s[row])
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

