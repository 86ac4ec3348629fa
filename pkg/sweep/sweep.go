// Package sweep drives one Workload dimension (queue depth, block size,
// or thread count) through a series of values and locates the knee of
// the resulting throughput curve: the point past which adding more
// concurrency (or a bigger block) stops paying off.
package sweep

import (
	"fmt"
	"time"

	"github.com/coreio-bench/diskbench/pkg/analyze"
	"github.com/coreio-bench/diskbench/pkg/bench"
	"github.com/coreio-bench/diskbench/pkg/fileprep"
	"github.com/coreio-bench/diskbench/pkg/model"
	"github.com/coreio-bench/diskbench/pkg/trial"
)

// Dimension names the Workload field a sweep varies.
type Dimension int

const (
	QueueDepth Dimension = iota
	BlockSize
	Threads
)

func (d Dimension) String() string {
	switch d {
	case QueueDepth:
		return "queue_depth"
	case BlockSize:
		return "block_size"
	case Threads:
		return "threads"
	default:
		return "unknown"
	}
}

// Options configures one sweep run. Base is the workload template;
// Dimension's field is overwritten with each of Values in turn. The
// file is prepared once, at Base.FileSize, and shared by every step.
type Options struct {
	Base              model.Workload
	Dimension         Dimension
	Values            []int
	WarmupDuration    time.Duration
	MeasuredDuration  time.Duration
	Seed              int64
	ReuseExistingFile bool
	// LinearFitTolerance is the relative error RANSAC allows when fitting
	// the curve's dominant linear region (see analyze.FindDominantLinearRegion).
	// Zero means the default of 0.05 (5%).
	LinearFitTolerance float64
	// OnStep, if set, is called after each value's trial completes.
	OnStep func(index, total int, step Step)
}

// Step is one value's measured result in the sweep.
type Step struct {
	Value  int
	Result model.TrialResult
	IOPS   float64
}

// Result is the outcome of a full sweep.
type Result struct {
	Steps []Step
	Knee  analyze.Point
	// LinearRegion is the line that the most steps fit within the
	// tolerance, found over all steps; it is not restricted to the steps
	// before the knee and may lie on the flat part of the curve.
	LinearRegion analyze.LinearFit
}

// Run executes one trial per value in opts.Values, holding every other
// workload field fixed, and returns the per-value results plus the
// knee of the IOPS-vs-value curve.
func Run(opts Options) (*Result, error) {
	if len(opts.Values) == 0 {
		return nil, bench.New(bench.InvalidPlan, "sweep requires at least one value")
	}

	wl := opts.Base
	if opts.Dimension == BlockSize {
		maxBlock := opts.Values[0]
		for _, v := range opts.Values {
			if v > maxBlock {
				maxBlock = v
			}
		}
		wl.BlockSize = maxBlock
	}

	pf, err := fileprep.Prepare(fileprep.Options{
		Path:          wl.Path,
		FileSize:      wl.FileSize,
		ReuseIfExists: opts.ReuseExistingFile,
		Seed:          opts.Seed,
	}, nil)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, v := range opts.Values {
		stepWl := opts.Base
		switch opts.Dimension {
		case QueueDepth:
			stepWl.QueueDepth = v
		case BlockSize:
			stepWl.BlockSize = v
		case Threads:
			stepWl.Threads = v
		}

		tr, err := trial.Run(stepWl, trial.Options{
			WarmupDuration:    opts.WarmupDuration,
			MeasuredDuration:  opts.MeasuredDuration,
			Seed:              opts.Seed + int64(i)*1000 + 1,
			TrialNumber:       i + 1,
			ActualFileSize:    pf.ActualSize,
			LogicalSectorSize: pf.LogicalSectorSize,
			PinCore:           -1,
		})
		if err != nil {
			return nil, fmt.Errorf("sweep step %s=%d: %w", opts.Dimension, v, err)
		}

		iops := 0.0
		if secs := tr.MeasuredDuration.Seconds(); secs > 0 {
			iops = float64(tr.TotalOps) / secs
		}
		step := Step{Value: v, Result: *tr, IOPS: iops}
		res.Steps = append(res.Steps, step)
		if opts.OnStep != nil {
			opts.OnStep(i, len(opts.Values), step)
		}
	}

	points := make([]analyze.Point, len(res.Steps))
	for i, s := range res.Steps {
		points[i] = analyze.Point{X: float64(s.Value), Y: s.IOPS, OriginalValue: s.Value}
	}
	res.Knee = analyze.FindKnee(points)

	tolerance := opts.LinearFitTolerance
	if tolerance <= 0 {
		tolerance = 0.05
	}
	res.LinearRegion = analyze.FindDominantLinearRegion(points, tolerance)

	return res, nil
}
