package featselect

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchTestFrame(t *testing.T) *SharedFrame {
	d, err := NewDataset("ID_1", []int64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, d.AddFeature("rsA", []float64{0, 0, 0, 1, 1, 1}))
	require.NoError(t, d.AddFeature("rsB", []float64{2, 0, 1, 0, 1, 0}))
	require.NoError(t, d.AddFeature("rsC", []float64{1, 1, 1, 1, 1, 0}))
	require.NoError(t, d.AddFixed("pheno", []float64{0, 0, 0, 1, 1, 1}))
	frame, err := NewSharedFrame(d, "pheno", d.FeatureNames())
	require.NoError(t, err)
	return frame
}

func TestScoreFeatures(t *testing.T) {
	for _, parallelism := range []int{1, 2, 16} {
		t.Run(fmt.Sprint(parallelism), func(t *testing.T) {
			frame := dispatchTestFrame(t)
			tbl, err := ScoreFeatures(frame, Chi2, parallelism)
			require.NoError(t, err)
			require.Len(t, tbl.Records, 3)
			assert.Equal(t, Chi2, tbl.Method)
			// One record per feature, in canonical order regardless of
			// completion order.
			assert.Equal(t, "rsA", tbl.Records[0].Feature)
			assert.Equal(t, "rsB", tbl.Records[1].Feature)
			assert.Equal(t, "rsC", tbl.Records[2].Feature)
			assert.Equal(t, 3.0, tbl.Records[0].Frequency)
			assert.Equal(t, 4.0, tbl.Records[1].Frequency)
			assert.Equal(t, 5.0, tbl.Records[2].Frequency)
			// rsA separates the classes perfectly.
			assert.Equal(t, 6.0, tbl.Records[0].Values[0])
			// Adjusted p-values are filled later, by the corrector.
			assert.True(t, math.IsNaN(tbl.Records[0].PValueAdj))

			// The pool released the frame on the way out.
			_, _, err = frame.Read()
			assert.Equal(t, ErrHandleReleased, err)
		})
	}
}

func TestScoreFeaturesRejectsMultivariate(t *testing.T) {
	frame := dispatchTestFrame(t)
	tbl, err := ScoreFeatures(frame, MRMR, 1)
	assert.Error(t, err)
	assert.Nil(t, tbl)
}

func TestDispatchTaskFailure(t *testing.T) {
	frame := dispatchTestFrame(t)
	// Fail the task that scores rsB; the whole dispatch must abort with no
	// partial table, and the frame must still be released.
	failing := func(m Method, feature, target []float64) ([]float64, float64, error) {
		if feature[0] == 2 {
			return nil, 0, fmt.Errorf("injected failure")
		}
		return scoreFeature(m, feature, target)
	}
	tbl, err := dispatch(frame, Chi2, 2, failing)
	require.Error(t, err)
	assert.Nil(t, tbl)
	_, _, err = frame.Read()
	assert.Equal(t, ErrHandleReleased, err)
}
