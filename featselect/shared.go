package featselect

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrHandleReleased is returned by SharedFrame.Read after Release.
var ErrHandleReleased = errors.New("featselect: shared frame read after release")

// SharedFrame is the read-only view of one bootstrap's feature matrix and
// target vector that scoring workers attach to. Reads return views into the
// underlying columns, never copies, so handing the frame to a pool of workers
// costs nothing per task. The frame is immutable for its lifetime; Release
// ends the lifetime and subsequent reads fail with ErrHandleReleased.
//
// The release contract mirrors a bounded-lifetime shared-memory segment: the
// dispatcher releases the frame when the pool drains, success or not, so the
// next bootstrap never accumulates stale storage.
type SharedFrame struct {
	names    []string
	features [][]float64
	target   []float64
	released int32
}

// NewSharedFrame builds a frame over the given feature columns of d and the
// target column.
func NewSharedFrame(d *Dataset, target string, features []string) (*SharedFrame, error) {
	tcol, ok := d.Column(target)
	if !ok {
		return nil, fmt.Errorf("featselect: target column %q not in dataset", target)
	}
	cols := make([][]float64, len(features))
	for i, name := range features {
		c, ok := d.Feature(name)
		if !ok {
			return nil, fmt.Errorf("featselect: feature column %q not in dataset", name)
		}
		cols[i] = c
	}
	return &SharedFrame{names: features, features: cols, target: tcol}, nil
}

// Read returns views of the feature matrix (one slice per feature, aligned
// with FeatureNames) and the target vector. Callers must not mutate them.
func (f *SharedFrame) Read() ([][]float64, []float64, error) {
	if atomic.LoadInt32(&f.released) != 0 {
		return nil, nil, ErrHandleReleased
	}
	return f.features, f.target, nil
}

func (f *SharedFrame) NumFeatures() int { return len(f.names) }

func (f *SharedFrame) FeatureNames() []string { return f.names }

// Release frees the frame. Idempotent.
func (f *SharedFrame) Release() {
	atomic.StoreInt32(&f.released, 1)
}
