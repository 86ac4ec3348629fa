package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coreio-bench/diskbench/pkg/model"
)

func trialWithThroughput(bytesPerSec float64, secs float64) model.TrialResult {
	dur := time.Duration(secs * float64(time.Second))
	return model.TrialResult{
		TotalBytes:       int64(bytesPerSec * secs),
		TotalOps:         int64(bytesPerSec * secs / 4096),
		MeasuredDuration: dur,
		Latency: model.LatencySummary{
			MinUs: 10, P50Us: 100, P90Us: 200, P95Us: 250, P99Us: 400, P999Us: 900, MaxUs: 1000, MeanUs: 120,
		},
	}
}

func TestAggregateMeanAndStdDev(t *testing.T) {
	trials := []model.TrialResult{
		trialWithThroughput(100, 1),
		trialWithThroughput(110, 1),
		trialWithThroughput(90, 1),
	}
	res := Aggregate(model.Workload{}, trials, false, 0)
	require.InDelta(t, 100, res.MeanBytesPerSecond, 0.01)
	require.Greater(t, res.StdDevBytesPerSecond, 0.0)
}

func TestAggregateStdDevZeroForSingleTrial(t *testing.T) {
	trials := []model.TrialResult{trialWithThroughput(100, 1)}
	res := Aggregate(model.Workload{}, trials, false, 0)
	require.Equal(t, 0.0, res.StdDevBytesPerSecond)
}

func TestAggregateLatencyIsMeanOfPercentilesMaxOfMax(t *testing.T) {
	trials := []model.TrialResult{
		{Latency: model.LatencySummary{P50Us: 100, MaxUs: 1000, MinUs: 10}},
		{Latency: model.LatencySummary{P50Us: 200, MaxUs: 3000, MinUs: 20}},
	}
	res := Aggregate(model.Workload{}, trials, false, 0)
	require.Equal(t, int64(150), res.MeanLatency.P50Us)
	require.Equal(t, int64(3000), res.MeanLatency.MaxUs)
	require.Equal(t, int64(15), res.MeanLatency.MinUs)
}

func TestBootstrapCIDeterministicAndZeroWidthForIdenticalInputs(t *testing.T) {
	xs := []float64{100, 100, 100, 100}
	lo1, hi1 := bootstrapCI(xs, 2000)
	lo2, hi2 := bootstrapCI(xs, 2000)
	require.Equal(t, lo1, lo2, "bootstrap must be deterministic for a fixed seed")
	require.Equal(t, hi1, hi2)
	require.InDelta(t, 100, lo1, 1e-9)
	require.InDelta(t, 100, hi1, 1e-9)
}

func TestBootstrapCISingleSampleReturnsThatSample(t *testing.T) {
	lo, hi := bootstrapCI([]float64{42}, 1000)
	require.Equal(t, 42.0, lo)
	require.Equal(t, 42.0, hi)
}

func TestBootstrapCIBracketsMeanForVariedInputs(t *testing.T) {
	xs := []float64{100, 110, 90, 105, 95}
	lo, hi := bootstrapCI(xs, 10000)
	m := mean(xs)
	require.LessOrEqual(t, lo, m+1e-9)
	require.GreaterOrEqual(t, hi, m-1e-9)
}
