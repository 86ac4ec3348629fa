package sink

import (
	"fmt"

	"github.com/coreio-bench/diskbench/pkg/model"
)

// Console prints progress with plain fmt calls; no structured logger.
type Console struct{}

func (Console) OnBenchmarkStart(plan model.Plan) {
	fmt.Printf("starting run: %d workload(s), %d trial(s) each\n", len(plan.Workloads), plan.Trials)
}

func (Console) OnWorkloadStart(workload model.Workload, index, total int) {
	fmt.Printf("[%d/%d] workload %q: %s %s %d-byte blocks, qd=%d threads=%d\n",
		index+1, total, workload.Name, workload.Pattern, workload.Path, workload.BlockSize, workload.QueueDepth, workload.Threads)
}

func (Console) OnTrialStart(workload model.Workload, trialNumber, totalTrials int) {
	fmt.Printf("  trial %d/%d starting\n", trialNumber, totalTrials)
}

func (Console) OnTrialProgress(workload model.Workload, trialNumber int, progress model.Progress) {
	phase := "measured"
	if progress.IsWarmup {
		phase = "warmup"
	} else if progress.IsFinalizing {
		phase = "drain"
	}
	fmt.Printf("  trial %d [%s] %s/%s  %.0f IOPS  %.2f MB/s\n",
		trialNumber, phase, progress.Elapsed.Round(1e8), progress.Duration,
		progress.CurrentIOPS, progress.CurrentBytesPerSecond/1024/1024)
}

func (Console) OnTrialComplete(workload model.Workload, trialNumber int, result model.TrialResult) {
	fmt.Printf("  trial %d done: %d ops, p99=%dus\n", trialNumber, result.TotalOps, result.Latency.P99Us)
}

func (Console) OnWorkloadComplete(workload model.Workload, result model.WorkloadResult) {
	fmt.Printf("workload %q complete: %.0f IOPS (±%.0f), %.2f MB/s (±%.2f)\n",
		workload.Name, result.MeanIOPS, result.StdDevIOPS,
		result.MeanBytesPerSecond/1024/1024, result.StdDevBytesPerSecond/1024/1024)
}

func (Console) OnBenchmarkComplete(result model.BenchmarkResult) {
	fmt.Printf("run complete: %d workload(s) in %s\n", len(result.Workloads), result.EndTime.Sub(result.StartTime))
}

func (Console) OnWarning(message string) {
	fmt.Printf("warning: %s\n", message)
}

func (Console) OnError(message string, cause error) {
	if cause != nil {
		fmt.Printf("error: %s: %v\n", message, cause)
		return
	}
	fmt.Printf("error: %s\n", message)
}
