package featselect

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sharedTestDataset(t *testing.T) *Dataset {
	d, err := NewDataset("ID_1", []int64{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, d.AddFeature("rs1", []float64{0, 1, 0, 2}))
	require.NoError(t, d.AddFeature("rs2", []float64{1, 1, 0, 0}))
	require.NoError(t, d.AddFixed("pheno", []float64{0, 1, 0, 1}))
	return d
}

func TestSharedFrameRead(t *testing.T) {
	d := sharedTestDataset(t)
	frame, err := NewSharedFrame(d, "pheno", []string{"rs2", "rs1"})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.NumFeatures())
	expect.EQ(t, frame.FeatureNames(), []string{"rs2", "rs1"})

	cols, target, err := frame.Read()
	require.NoError(t, err)
	expect.EQ(t, cols[0], []float64{1, 1, 0, 0})
	expect.EQ(t, cols[1], []float64{0, 1, 0, 2})
	expect.EQ(t, target, []float64{0, 1, 0, 1})
}

func TestSharedFrameRelease(t *testing.T) {
	d := sharedTestDataset(t)
	frame, err := NewSharedFrame(d, "pheno", []string{"rs1"})
	require.NoError(t, err)
	frame.Release()
	_, _, err = frame.Read()
	assert.Equal(t, ErrHandleReleased, err)
	// Release is idempotent.
	frame.Release()
	_, _, err = frame.Read()
	assert.Equal(t, ErrHandleReleased, err)
}

func TestNewSharedFrameUnknownColumns(t *testing.T) {
	d := sharedTestDataset(t)
	_, err := NewSharedFrame(d, "missing", []string{"rs1"})
	assert.Error(t, err)
	_, err = NewSharedFrame(d, "pheno", []string{"rs9"})
	assert.Error(t, err)
	// A fixed column is not a feature.
	_, err = NewSharedFrame(d, "pheno", []string{"pheno"})
	assert.Error(t, err)
}
