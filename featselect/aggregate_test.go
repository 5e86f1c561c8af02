package featselect

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scoreTablesFor builds one table per bootstrap from per-feature primary
// scores: scores[feature][bootstrap].
func scoreTablesFor(m Method, features []string, scores [][]float64) []*ScoreTable {
	nBoot := len(scores[0])
	tables := make([]*ScoreTable, nBoot)
	for b := 0; b < nBoot; b++ {
		recs := make([]ScoreRecord, len(features))
		for f, name := range features {
			vals := make([]float64, len(m.ScoreColumns()))
			for i := range vals {
				vals[i] = scores[f][b]
			}
			recs[f] = ScoreRecord{
				Feature:   name,
				Values:    vals,
				PValue:    math.NaN(),
				PValueAdj: math.NaN(),
			}
		}
		tables[b] = &ScoreTable{Method: m, Records: recs}
	}
	return tables
}

func TestAggregateTopK(t *testing.T) {
	features := []string{"rsA"}
	tables := map[Method][]*ScoreTable{
		Chi2: scoreTablesFor(Chi2, features, [][]float64{{5, 3, math.NaN(), 7}}),
	}
	freq := map[string]int{"rsA": 4}
	agg, err := aggregateTables([]Method{Chi2}, tables, features, features, freq, 2)
	require.NoError(t, err)
	require.Len(t, agg.Records, 1)
	ma := agg.Records[0].ByMethod[Chi2]
	assert.Equal(t, 12.0, ma.Total) // best two of {5, 3, 7}
	assert.Equal(t, 1, ma.NaNCount)
	assert.InDelta(t, 4.0, ma.Average, 1e-12) // 12 / (4-1)
	assert.Equal(t, 4, agg.Records[0].Frequency)
}

func TestAggregateLowerIsBetter(t *testing.T) {
	features := []string{"rsA"}
	tables := map[Method][]*ScoreTable{
		MWU: scoreTablesFor(MWU, features, [][]float64{{2, 5, 1}}),
	}
	agg, err := aggregateTables([]Method{MWU}, tables, features, features, map[string]int{}, 2)
	require.NoError(t, err)
	ma := agg.Records[0].ByMethod[MWU]
	assert.Equal(t, 3.0, ma.Total) // smallest two of {2, 5, 1}
	assert.Equal(t, 0, ma.NaNCount)
	assert.InDelta(t, 1.0, ma.Average, 1e-12)
}

func TestAggregateMaskedFeature(t *testing.T) {
	all := []string{"rsA", "rsRare"}
	masked := []string{"rsA"}
	tables := map[Method][]*ScoreTable{
		Chi2: scoreTablesFor(Chi2, masked, [][]float64{{1, 2, 3}}),
	}
	agg, err := aggregateTables([]Method{Chi2}, tables, all, masked, map[string]int{"rsRare": 1}, 2)
	require.NoError(t, err)
	require.Len(t, agg.Records, 2)

	// The masked feature still gets a row, fully NaN-accounted.
	rare := agg.Records[1]
	assert.Equal(t, "rsRare", rare.Feature)
	ma := rare.ByMethod[Chi2]
	assert.Equal(t, 3, ma.NaNCount)
	assert.Equal(t, 0.0, ma.Total)
	assert.True(t, math.IsNaN(ma.Average))
	for _, s := range ma.Scores {
		assert.True(t, math.IsNaN(s))
	}
}

func TestAggregateOrderMismatch(t *testing.T) {
	features := []string{"rsA", "rsB"}
	tables := map[Method][]*ScoreTable{
		Chi2: scoreTablesFor(Chi2, features, [][]float64{{1, 1}, {2, 2}}),
	}
	// Swap the rows of the second bootstrap's table.
	recs := tables[Chi2][1].Records
	recs[0], recs[1] = recs[1], recs[0]

	_, err := aggregateTables([]Method{Chi2}, tables, features, features, map[string]int{}, 1)
	require.Error(t, err)
	var orderErr *OrderMismatchError
	require.True(t, errors.As(err, &orderErr))
	assert.Equal(t, Chi2, orderErr.Method)
	assert.Equal(t, 1, orderErr.Bootstrap)
	assert.Equal(t, 0, orderErr.Index)
	assert.Equal(t, "rsB", orderErr.Got)
	assert.Equal(t, "rsA", orderErr.Want)
}

func TestAggregateKBestBounds(t *testing.T) {
	features := []string{"rsA"}
	tables := map[Method][]*ScoreTable{
		Chi2: scoreTablesFor(Chi2, features, [][]float64{{1, 2}}),
	}
	_, err := aggregateTables([]Method{Chi2}, tables, features, features, map[string]int{}, 3)
	assert.Error(t, err)
}

func TestAggregateCarriesPValues(t *testing.T) {
	tables := map[Method][]*ScoreTable{
		Chi2: scoreTablesFor(Chi2, []string{"rsA"}, [][]float64{{4, 6}}),
	}
	tables[Chi2][0].Records[0].PValue = 0.01
	tables[Chi2][0].Records[0].PValueAdj = 0.02
	tables[Chi2][1].Records[0].PValue = 0.5
	tables[Chi2][1].Records[0].PValueAdj = 0.5

	agg, err := aggregateTables([]Method{Chi2}, tables, []string{"rsA"}, []string{"rsA"}, map[string]int{}, 1)
	require.NoError(t, err)
	ma := agg.Records[0].ByMethod[Chi2]
	assert.Equal(t, []float64{0.01, 0.5}, ma.PValues)
	assert.Equal(t, []float64{0.02, 0.5}, ma.PValuesAdj)
	assert.Equal(t, []float64{4, 6}, ma.Scores)
	assert.Equal(t, 6.0, ma.Total) // kBest=1 keeps only the best bootstrap
}
