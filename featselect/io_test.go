package featselect

import (
	"context"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "featselect")
	require.NoError(t, err)
	return dir, func() { _ = os.RemoveAll(dir) }
}

func TestScoreTableRoundTrip(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	ctx := context.Background()

	want := &ScoreTable{
		Method: Chi2,
		Records: []ScoreRecord{
			{Feature: "rsA", Values: []float64{6}, PValue: 0.0143, PValueAdj: 0.0286, Frequency: 3},
			{Feature: "rsB", Values: []float64{math.NaN()}, PValue: math.NaN(), PValueAdj: math.NaN(), Frequency: 4},
		},
	}
	for _, name := range []string{"chi2_1.tsv", "chi2_1.tsv.gz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteScoreTable(ctx, path, want))
		got, err := ReadScoreTable(ctx, path, Chi2)
		require.NoError(t, err)
		require.Len(t, got.Records, 2)
		assert.Equal(t, "rsA", got.Records[0].Feature)
		assert.Equal(t, 6.0, got.Records[0].Values[0])
		assert.Equal(t, 0.0143, got.Records[0].PValue)
		assert.Equal(t, 0.0286, got.Records[0].PValueAdj)
		assert.Equal(t, 3.0, got.Records[0].Frequency)
		// NaN survives the text round trip.
		assert.True(t, math.IsNaN(got.Records[1].Values[0]))
		assert.True(t, math.IsNaN(got.Records[1].PValue))
	}
}

func TestScoreTableRoundTripOtherMethods(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	ctx := context.Background()

	want := &ScoreTable{
		Method: MWU,
		Records: []ScoreRecord{
			{Feature: "rsA", Values: []float64{0, 9, 0}, PValue: 0.08, PValueAdj: 0.08, Frequency: 3},
		},
	}
	path := filepath.Join(dir, "mwu_1.tsv")
	require.NoError(t, WriteScoreTable(ctx, path, want))
	got, err := ReadScoreTable(ctx, path, MWU)
	require.NoError(t, err)
	expect.EQ(t, got.Records[0].Values, []float64{0, 9, 0})

	infogain := &ScoreTable{
		Method:  InfoGain,
		Records: []ScoreRecord{{Feature: "rsA", Values: []float64{0.69}, PValue: math.NaN(), PValueAdj: math.NaN()}},
	}
	path = filepath.Join(dir, "infogain_1.tsv")
	require.NoError(t, WriteScoreTable(ctx, path, infogain))
	got, err = ReadScoreTable(ctx, path, InfoGain)
	require.NoError(t, err)
	assert.Equal(t, 0.69, got.Records[0].Values[0])
	assert.True(t, math.IsNaN(got.Records[0].PValue))

	// Reading with the wrong method fails the header check.
	_, err = ReadScoreTable(ctx, path, Chi2)
	assert.Error(t, err)
}

func TestBootstrapsRoundTrip(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	ctx := context.Background()

	want := [][]int64{
		{3, 1, 3, 2},
		{2, 2, 1, 4},
	}
	path := filepath.Join(dir, "bootstraps.tsv")
	require.NoError(t, WriteBootstraps(ctx, path, want))
	got, err := ReadBootstraps(ctx, path)
	require.NoError(t, err)
	expect.EQ(t, got, want)
}

func TestWriteBootstrapsRagged(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	err := WriteBootstraps(context.Background(), filepath.Join(dir, "bad.tsv"),
		[][]int64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestReadDataset(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(dir, "dataset.tsv")
	content := "ID_1\tsnpA\tpheno\tsnpB\n" +
		"1\t0\t0\t2\n" +
		"2\t1\t1\t0\n" +
		"3\t2\t1\t1\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	d, err := ReadDataset(ctx, path, "ID_1", []string{"pheno"})
	require.NoError(t, err)
	expect.EQ(t, d.SubjectIDs(), []int64{1, 2, 3})
	expect.EQ(t, d.FeatureNames(), []string{"snpA", "snpB"})
	col, ok := d.Feature("snpB")
	assert.True(t, ok)
	expect.EQ(t, col, []float64{2, 0, 1})
	col, ok = d.Column("pheno")
	assert.True(t, ok)
	expect.EQ(t, col, []float64{0, 1, 1})
	_, ok = d.Feature("pheno")
	assert.False(t, ok)

	_, err = ReadDataset(ctx, path, "IID", nil)
	assert.Error(t, err)
}

func TestWriteAggregate(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()
	ctx := context.Background()

	agg := &Aggregate{
		Methods:     []Method{Chi2, InfoGain},
		NBootstraps: 2,
		KBest:       1,
		Records: []AggregateRecord{
			{
				Feature:   "rsA",
				Frequency: 5,
				ByMethod: map[Method]*MethodAggregate{
					Chi2: {
						Total: 6, Average: 3,
						Scores:     []float64{6, 4},
						PValues:    []float64{0.01, 0.1},
						PValuesAdj: []float64{0.02, 0.1},
					},
					InfoGain: {
						Total: 0.7, NaNCount: 1, Average: 0.7,
						Scores: []float64{0.7, math.NaN()},
					},
				},
			},
		},
	}
	path := filepath.Join(dir, "aggregate.tsv")
	require.NoError(t, WriteAggregate(ctx, path, agg))

	raw, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	expect.EQ(t, strings.Split(lines[0], "\t"), []string{
		"SNP", "frequency",
		"total_chi2", "nan_chi2", "average_chi2",
		"total_infogain", "nan_infogain", "average_infogain",
		"chi2_1", "p_val_chi2_1", "p_val_adj_chi2_1",
		"chi2_2", "p_val_chi2_2", "p_val_adj_chi2_2",
		"infogain_1", "infogain_2",
	})
	row := strings.Split(lines[1], "\t")
	assert.Equal(t, "rsA", row[0])
	assert.Equal(t, "5", row[1])
	assert.Equal(t, "NaN", row[len(row)-1])
}
