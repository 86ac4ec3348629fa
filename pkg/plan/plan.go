// Package plan validates a Plan, loads and saves it as YAML, and drives
// the workload/trial loop end to end: prepare each workload's file, run
// its trials through pkg/trial, aggregate them with pkg/aggregate, and
// report progress through a sink.Sink.
package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreio-bench/diskbench/pkg/aggregate"
	"github.com/coreio-bench/diskbench/pkg/bench"
	"github.com/coreio-bench/diskbench/pkg/fileprep"
	"github.com/coreio-bench/diskbench/pkg/model"
	"github.com/coreio-bench/diskbench/pkg/sink"
	"github.com/coreio-bench/diskbench/pkg/trial"
)

// Load reads and parses a Plan from a YAML file.
func Load(path string) (*model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bench.Wrap(bench.InvalidPlan, "read plan file", err)
	}
	var p model.Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, bench.Wrap(bench.InvalidPlan, "parse plan yaml", err)
	}
	return &p, nil
}

// Save marshals a Plan to YAML and writes it to path.
func Save(path string, p model.Plan) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return bench.Wrap(bench.InvalidPlan, "marshal plan", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks a Plan's own fields and every workload's fields,
// returning an error of Kind InvalidPlan on the first violation found.
func Validate(p model.Plan) error {
	if len(p.Workloads) == 0 {
		return bench.New(bench.InvalidPlan, "plan must include at least one workload")
	}
	if p.Trials < 1 {
		return bench.New(bench.InvalidPlan, "trials must be at least 1")
	}
	if p.WarmupDuration < 0 {
		return bench.New(bench.InvalidPlan, "warmup duration must not be negative")
	}
	if p.MeasuredDuration <= 0 {
		return bench.New(bench.InvalidPlan, "measured duration must be positive")
	}
	if p.BootstrapIterations < 0 {
		return bench.New(bench.InvalidPlan, "bootstrap iterations must not be negative")
	}
	for i, wl := range p.Workloads {
		if err := validateWorkload(wl); err != nil {
			return fmt.Errorf("workload %d (%q): %w", i, wl.Name, err)
		}
	}
	return nil
}

func validateWorkload(wl model.Workload) error {
	if wl.Path == "" {
		return bench.New(bench.InvalidPlan, "path is required")
	}
	if wl.FileSize <= 0 {
		return bench.New(bench.InvalidPlan, "file_size must be positive")
	}
	if wl.BlockSize <= 0 {
		return bench.New(bench.InvalidPlan, "block_size must be positive")
	}
	if wl.QueueDepth < 1 {
		return bench.New(bench.InvalidPlan, "queue_depth must be at least 1")
	}
	if wl.Threads < 1 {
		return bench.New(bench.InvalidPlan, "threads must be at least 1")
	}
	if wl.WritePercent < 0 || wl.WritePercent > 100 {
		return bench.New(bench.InvalidPlan, "write_percent must be between 0 and 100")
	}
	if wl.Region != nil {
		if wl.Region.Offset < 0 {
			return bench.New(bench.InvalidPlan, "region offset must not be negative")
		}
		if wl.Region.Length < 0 {
			return bench.New(bench.InvalidPlan, "region length must not be negative")
		}
	}
	return nil
}

// Options configures one Run call.
type Options struct {
	Sink sink.Sink
	// Cancel, when closed, stops the run at the next workload or trial
	// boundary and fails with a Cancelled error.
	Cancel <-chan struct{}
}

// Run validates p, then prepares and measures every workload in order,
// emitting every event in Options.Sink and returning the accumulated
// BenchmarkResult. A workload or trial failure stops the run and returns
// whatever workloads had already completed alongside the error.
func Run(p model.Plan, opts Options) (*model.BenchmarkResult, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}

	sk := opts.Sink
	if sk == nil {
		sk = sink.NoOp{}
	}
	cancel := opts.Cancel
	if cancel == nil {
		cancel = make(chan struct{})
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}

	result := &model.BenchmarkResult{Plan: p, StartTime: time.Now()}
	sk.OnBenchmarkStart(p)

	// Directories covering any delete-on-complete workload file, tracked
	// across every workload so they can all be swept at the very end
	// regardless of where the run stops.
	dirs := map[string]struct{}{}
	defer removeCoveringDirs(dirs, sk)

	for i, wl := range p.Workloads {
		select {
		case <-cancel:
			err := bench.New(bench.Cancelled, "cancelled before workload "+wl.Name)
			sk.OnError("benchmark cancelled", err)
			result.EndTime = time.Now()
			return result, err
		default:
		}

		sk.OnWorkloadStart(wl, i, len(p.Workloads))

		wr, err := runWorkload(p, wl, i, sk, cancel, dirs)
		if err != nil {
			sk.OnError(fmt.Sprintf("workload %q failed", wl.Name), err)
			result.EndTime = time.Now()
			return result, err
		}

		result.Workloads = append(result.Workloads, *wr)
		sk.OnWorkloadComplete(wl, *wr)
	}

	result.EndTime = time.Now()
	sk.OnBenchmarkComplete(*result)
	return result, nil
}

func runWorkload(p model.Plan, wl model.Workload, index int, sk sink.Sink, cancel <-chan struct{}, dirs map[string]struct{}) (*model.WorkloadResult, error) {
	pf, err := fileprep.Prepare(fileprep.Options{
		Path:          wl.Path,
		FileSize:      wl.FileSize,
		ReuseIfExists: p.ReuseExistingFiles,
		Seed:          p.Seed,
	}, nil)
	if err != nil {
		return nil, err
	}
	for _, w := range pf.Warnings {
		sk.OnWarning(w)
	}

	// delete_on_complete opens its own handle up front and unlinks the
	// path immediately: the inode is reclaimed by the OS once every fd
	// referencing it closes, even if the process dies mid-trial. Every
	// trial.Run call for this workload shares this one handle instead of
	// reopening by path, since the path no longer resolves to anything.
	var delFile *os.File
	if p.DeleteOnComplete {
		f, ferr := os.OpenFile(wl.Path, trial.OpenFlags(wl), 0o666)
		if ferr != nil {
			return nil, bench.Wrap(bench.PrepareFailed, "open delete-on-complete handle", ferr)
		}
		delFile = f
		defer delFile.Close()

		if rerr := os.Remove(wl.Path); rerr != nil {
			sk.OnWarning(fmt.Sprintf("delete-on-complete: could not unlink %q: %v", wl.Path, rerr))
		}
		dirs[filepath.Dir(wl.Path)] = struct{}{}
	}

	trials := make([]model.TrialResult, 0, p.Trials)
	for t := 1; t <= p.Trials; t++ {
		select {
		case <-cancel:
			return nil, bench.New(bench.Cancelled, "cancelled mid-workload "+wl.Name)
		default:
		}

		sk.OnTrialStart(wl, t, p.Trials)

		seed := effectiveSeed(p.Seed, index, t)
		tr, err := trial.Run(wl, trial.Options{
			WarmupDuration:    p.WarmupDuration,
			MeasuredDuration:  p.MeasuredDuration,
			Seed:              seed,
			TrialNumber:       t,
			ActualFileSize:    pf.ActualSize,
			LogicalSectorSize: pf.LogicalSectorSize,
			CollectTimeSeries: p.CollectTimeSeries,
			TrackAllocations:  p.TrackAllocations,
			PinCore:           -1,
			Progress: func(pr model.Progress) {
				sk.OnTrialProgress(wl, t, pr)
			},
			Cancel: cancel,
			File:   delFile,
		})
		if err != nil {
			return nil, err
		}

		for _, w := range tr.Warnings {
			sk.OnWarning(w)
		}
		sk.OnTrialComplete(wl, t, *tr)
		trials = append(trials, *tr)
	}

	wr := aggregate.Aggregate(wl, trials, p.ComputeConfidenceIntervals, p.BootstrapIterations)
	return &wr, nil
}

// removeCoveringDirs best-effort-removes every directory a
// delete-on-complete workload wrote into, longest path first so a child
// directory is attempted before its parent. Failures are reported as
// warnings, never errors: the workload files themselves are already
// gone (unlinked at open time), so a directory that won't remove is
// cosmetic, not a correctness problem.
func removeCoveringDirs(dirs map[string]struct{}, sk sink.Sink) {
	if len(dirs) == 0 {
		return
	}
	list := make([]string, 0, len(dirs))
	for d := range dirs {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool { return len(list[i]) > len(list[j]) })
	for _, d := range list {
		if err := os.Remove(d); err != nil {
			sk.OnWarning(fmt.Sprintf("delete-on-complete: could not remove directory %q: %v", d, err))
		}
	}
}

// effectiveSeed derives a per-trial seed so that no two trials, across
// any workload, ever draw from the same offset or decision sequence.
func effectiveSeed(base int64, workloadIndex, trialNumber int) int64 {
	return base + int64(workloadIndex)*1000 + int64(trialNumber)
}
