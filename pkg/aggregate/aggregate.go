// Package aggregate computes trial-set statistics: mean, sample stddev,
// and 95% bootstrap confidence intervals.
package aggregate

import (
	"math"
	"math/rand"
	"sort"

	"github.com/coreio-bench/diskbench/pkg/model"
)

// DefaultBootstrapIterations is used when a Plan leaves
// BootstrapIterations unset.
const DefaultBootstrapIterations = 10000

// bootstrapSeed is fixed for reproducibility.
const bootstrapSeed = 42

// Aggregate folds a workload's per-trial results into a WorkloadResult.
// trials must be non-empty.
func Aggregate(workload model.Workload, trials []model.TrialResult, computeCI bool, bootstrapIterations int) model.WorkloadResult {
	if bootstrapIterations <= 0 {
		bootstrapIterations = DefaultBootstrapIterations
	}

	throughputs := make([]float64, len(trials))
	iopsSamples := make([]float64, len(trials))
	for i, tr := range trials {
		secs := tr.MeasuredDuration.Seconds()
		if secs > 0 {
			throughputs[i] = float64(tr.TotalBytes) / secs
			iopsSamples[i] = float64(tr.TotalOps) / secs
		}
	}

	result := model.WorkloadResult{
		Workload:             workload,
		Trials:               trials,
		MeanBytesPerSecond:   mean(throughputs),
		StdDevBytesPerSecond: stddev(throughputs),
		MeanIOPS:             mean(iopsSamples),
		StdDevIOPS:           stddev(iopsSamples),
		MeanLatency:          aggregateLatency(trials),
	}

	if computeCI {
		tLo, tHi := bootstrapCI(throughputs, bootstrapIterations)
		result.ThroughputCI = &model.CIPair{Lower: tLo, Upper: tHi}
		iLo, iHi := bootstrapCI(iopsSamples, bootstrapIterations)
		result.IOPSCI = &model.CIPair{Lower: iLo, Upper: iHi}
	}

	return result
}

func aggregateLatency(trials []model.TrialResult) model.LatencySummary {
	n := float64(len(trials))
	var sum model.LatencySummary
	var maxUs int64
	for _, tr := range trials {
		sum.MinUs += tr.Latency.MinUs
		sum.P50Us += tr.Latency.P50Us
		sum.P90Us += tr.Latency.P90Us
		sum.P95Us += tr.Latency.P95Us
		sum.P99Us += tr.Latency.P99Us
		sum.P999Us += tr.Latency.P999Us
		sum.MeanUs += tr.Latency.MeanUs
		if tr.Latency.MaxUs > maxUs {
			maxUs = tr.Latency.MaxUs
		}
	}
	if n == 0 {
		return model.LatencySummary{}
	}
	return model.LatencySummary{
		MinUs:  int64(float64(sum.MinUs) / n),
		P50Us:  int64(float64(sum.P50Us) / n),
		P90Us:  int64(float64(sum.P90Us) / n),
		P95Us:  int64(float64(sum.P95Us) / n),
		P99Us:  int64(float64(sum.P99Us) / n),
		P999Us: int64(float64(sum.P999Us) / n),
		MeanUs: sum.MeanUs / n,
		MaxUs:  maxUs,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the sample standard deviation, (n-1) denominator; 0 if n < 2.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		d := x - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)-1))
}

// bootstrapCI resamples xs with replacement B times, each time computing
// the resample mean, and returns the 2.5th/97.5th percentile of the
// sorted resample means. n < 2 short-circuits to a degenerate interval.
func bootstrapCI(xs []float64, iterations int) (float64, float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return xs[0], xs[0]
	}

	r := rand.New(rand.NewSource(bootstrapSeed))
	means := make([]float64, iterations)
	for b := 0; b < iterations; b++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += xs[r.Intn(n)]
		}
		means[b] = sum / float64(n)
	}
	sort.Float64s(means)

	lowIdx := int(0.025 * float64(iterations))
	highIdx := int(0.975 * float64(iterations))
	if highIdx >= iterations {
		highIdx = iterations - 1
	}
	return means[lowIdx], means[highIdx]
}
