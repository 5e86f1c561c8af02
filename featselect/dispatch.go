package featselect

import (
	"fmt"
	"math"
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"gonum.org/v1/gonum/floats"
)

// ScoreFeatures fans one scoring task per feature out over a fixed-size pool
// and joins the results into a table in canonical feature order. Every
// feature in the frame appears exactly once in the output; completion order
// is irrelevant because each task writes a disjoint slot. The first task
// error aborts the whole call with no partial results. The frame is released
// when the pool drains, success or failure.
func ScoreFeatures(frame *SharedFrame, method Method, parallelism int) (*ScoreTable, error) {
	return dispatch(frame, method, parallelism, scoreFeature)
}

func dispatch(frame *SharedFrame, method Method, parallelism int, score scoreFunc) (*ScoreTable, error) {
	defer frame.Release()
	if method.Multivariate() {
		return nil, fmt.Errorf("featselect: method %v cannot be dispatched per feature", method)
	}
	n := frame.NumFeatures()
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > n {
		parallelism = n
	}
	names := frame.FeatureNames()
	recs := make([]ScoreRecord, n)
	log.Printf("dispatch: scoring %d features with %v (%d jobs)", n, method, parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		cols, target, err := frame.Read()
		if err != nil {
			return err
		}
		startIdx := (jobIdx * n) / parallelism
		endIdx := ((jobIdx + 1) * n) / parallelism
		for i := startIdx; i < endIdx; i++ {
			vals, p, err := score(method, cols[i], target)
			if err != nil {
				return err
			}
			recs[i] = ScoreRecord{
				Feature:   names[i],
				Values:    vals,
				PValue:    p,
				PValueAdj: math.NaN(),
				Frequency: floats.Sum(cols[i]),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ScoreTable{Method: method, Records: recs}, nil
}
