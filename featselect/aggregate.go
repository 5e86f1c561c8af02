package featselect

import (
	"fmt"
	"math"
	"sort"
)

// OrderMismatchError reports a per-bootstrap score table whose feature order
// diverges from the canonical masked feature set. A corrupted or stale table
// is never silently tolerated.
type OrderMismatchError struct {
	Method    Method
	Bootstrap int
	Index     int
	Got, Want string
}

func (e *OrderMismatchError) Error() string {
	return fmt.Sprintf("featselect: %v table for bootstrap %d lists feature %q at position %d, want %q",
		e.Method, e.Bootstrap, e.Got, e.Index, e.Want)
}

// MethodAggregate folds one feature's scores for one method across all
// bootstraps. Scores/PValues/PValuesAdj hold the raw per-bootstrap values
// (NaN where the feature was masked or the statistic undefined).
type MethodAggregate struct {
	Total      float64 // sum of the kBest best valid scores
	NaNCount   int
	Average    float64 // Total / (nBootstraps - NaNCount); NaN when no valid score
	Scores     []float64
	PValues    []float64 // nil for methods without p-values
	PValuesAdj []float64
}

// AggregateRecord is one feature's final row, over the full unmasked feature
// set. Frequency is the feature's carrier count in the full dataset.
type AggregateRecord struct {
	Feature   string
	Frequency int
	ByMethod  map[Method]*MethodAggregate
}

// Aggregate is the final cross-bootstrap ranking table.
type Aggregate struct {
	Methods     []Method
	NBootstraps int
	KBest       int
	Records     []AggregateRecord
}

// AggregateScoreTables folds per-bootstrap score tables (for example, read
// back from disk) into the final ranking for the given dataset. The dataset
// supplies the canonical feature order, the full-dataset frequencies, and,
// with freqThreshold, the masked feature set every table must match.
// kBest = 0 defaults to one less than the bootstrap count.
func AggregateScoreTables(
	d *Dataset,
	methods []Method,
	tables map[Method][]*ScoreTable,
	freqThreshold, kBest int,
) (*Aggregate, error) {
	var nBoot int
	for _, m := range methods {
		if n := len(tables[m]); n > nBoot {
			nBoot = n
		}
	}
	if kBest == 0 {
		kBest = nBoot - 1
	}
	if kBest < 1 {
		return nil, fmt.Errorf("featselect: k_best %d out of range", kBest)
	}
	freq := d.Frequencies()
	masked := d.MaskRare(freq, freqThreshold)
	return aggregateTables(methods, tables, d.FeatureNames(), masked, freq, kBest)
}

// aggregateTables combines per-bootstrap score tables into one Aggregate.
// tables[m] must hold one table per bootstrap, each in canonical
// maskedFeatures order; any deviation is a fatal OrderMismatchError.
// allFeatures is the full feature set in canonical order and fullFreq the
// full-dataset frequency map. kBest best scores are summed per (feature,
// method), ascending-is-better for MWU and descending otherwise.
func aggregateTables(
	methods []Method,
	tables map[Method][]*ScoreTable,
	allFeatures, maskedFeatures []string,
	fullFreq map[string]int,
	kBest int,
) (*Aggregate, error) {
	var nBoot int
	for _, m := range methods {
		mt := tables[m]
		if nBoot == 0 {
			nBoot = len(mt)
		}
		if len(mt) != nBoot {
			return nil, fmt.Errorf("featselect: method %v has %d score tables, want %d", m, len(mt), nBoot)
		}
		for b, tbl := range mt {
			if len(tbl.Records) != len(maskedFeatures) {
				return nil, fmt.Errorf("featselect: %v table for bootstrap %d has %d rows, want %d",
					m, b, len(tbl.Records), len(maskedFeatures))
			}
			for i := range tbl.Records {
				if tbl.Records[i].Feature != maskedFeatures[i] {
					return nil, &OrderMismatchError{
						Method:    m,
						Bootstrap: b,
						Index:     i,
						Got:       tbl.Records[i].Feature,
						Want:      maskedFeatures[i],
					}
				}
			}
		}
	}
	if kBest > nBoot {
		return nil, fmt.Errorf("featselect: k_best %d exceeds bootstrap count %d", kBest, nBoot)
	}

	maskedIdx := make(map[string]int, len(maskedFeatures))
	for i, f := range maskedFeatures {
		maskedIdx[f] = i
	}

	agg := &Aggregate{
		Methods:     methods,
		NBootstraps: nBoot,
		KBest:       kBest,
		Records:     make([]AggregateRecord, len(allFeatures)),
	}
	for fi, feature := range allFeatures {
		rec := AggregateRecord{
			Feature:   feature,
			Frequency: fullFreq[feature],
			ByMethod:  make(map[Method]*MethodAggregate, len(methods)),
		}
		row, scored := maskedIdx[feature]
		for _, m := range methods {
			ma := &MethodAggregate{Scores: make([]float64, nBoot)}
			if m.HasPValue() {
				ma.PValues = make([]float64, nBoot)
				ma.PValuesAdj = make([]float64, nBoot)
			}
			valid := make([]float64, 0, nBoot)
			for b := 0; b < nBoot; b++ {
				if !scored {
					ma.Scores[b] = math.NaN()
					if ma.PValues != nil {
						ma.PValues[b] = math.NaN()
						ma.PValuesAdj[b] = math.NaN()
					}
					ma.NaNCount++
					continue
				}
				sr := &tables[m][b].Records[row]
				v := sr.Score(m)
				ma.Scores[b] = v
				if ma.PValues != nil {
					ma.PValues[b] = sr.PValue
					ma.PValuesAdj[b] = sr.PValueAdj
				}
				if math.IsNaN(v) {
					ma.NaNCount++
				} else {
					valid = append(valid, v)
				}
			}
			if m.LowerIsBetter() {
				sort.Float64s(valid)
			} else {
				sort.Sort(sort.Reverse(sort.Float64Slice(valid)))
			}
			top := kBest
			if top > len(valid) {
				top = len(valid)
			}
			for _, v := range valid[:top] {
				ma.Total += v
			}
			if n := nBoot - ma.NaNCount; n > 0 {
				ma.Average = ma.Total / float64(n)
			} else {
				ma.Average = math.NaN()
			}
			rec.ByMethod[m] = ma
		}
		agg.Records[fi] = rec
	}
	return agg, nil
}
