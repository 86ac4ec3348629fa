// Package sink defines the outbound event interface the plan runner and
// trial executor report through, plus a couple of reference
// implementations. A Sink is a capability set, not an object with
// identity: any value that implements every method works.
package sink

import "github.com/coreio-bench/diskbench/pkg/model"

// Sink receives every event the core emits, in program order:
//
//	BenchmarkStart -> (WorkloadStart -> (TrialStart -> TrialProgress* -> TrialComplete)* -> WorkloadComplete)* -> BenchmarkComplete
//
// Implementations invoked from a single-threaded trial executor need no
// internal synchronization; only an executor that fans a trial across
// multiple threads needs a thread-safe Sink.
type Sink interface {
	OnBenchmarkStart(plan model.Plan)
	OnWorkloadStart(workload model.Workload, index, total int)
	OnTrialStart(workload model.Workload, trialNumber, totalTrials int)
	OnTrialProgress(workload model.Workload, trialNumber int, progress model.Progress)
	OnTrialComplete(workload model.Workload, trialNumber int, result model.TrialResult)
	OnWorkloadComplete(workload model.Workload, result model.WorkloadResult)
	OnBenchmarkComplete(result model.BenchmarkResult)
	OnWarning(message string)
	OnError(message string, cause error)
}

// NoOp discards every event. It is useful as a base to embed when only a
// few callbacks matter.
type NoOp struct{}

func (NoOp) OnBenchmarkStart(model.Plan)                                  {}
func (NoOp) OnWorkloadStart(model.Workload, int, int)                     {}
func (NoOp) OnTrialStart(model.Workload, int, int)                        {}
func (NoOp) OnTrialProgress(model.Workload, int, model.Progress)          {}
func (NoOp) OnTrialComplete(model.Workload, int, model.TrialResult)       {}
func (NoOp) OnWorkloadComplete(model.Workload, model.WorkloadResult)      {}
func (NoOp) OnBenchmarkComplete(model.BenchmarkResult)                    {}
func (NoOp) OnWarning(string)                                             {}
func (NoOp) OnError(string, error)                                        {}

// FanOut forwards every event to each Sink in Targets, in order. A nil
// entry is skipped.
type FanOut struct {
	Targets []Sink
}

func (f FanOut) OnBenchmarkStart(plan model.Plan) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnBenchmarkStart(plan)
		}
	}
}

func (f FanOut) OnWorkloadStart(workload model.Workload, index, total int) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnWorkloadStart(workload, index, total)
		}
	}
}

func (f FanOut) OnTrialStart(workload model.Workload, trialNumber, totalTrials int) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnTrialStart(workload, trialNumber, totalTrials)
		}
	}
}

func (f FanOut) OnTrialProgress(workload model.Workload, trialNumber int, progress model.Progress) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnTrialProgress(workload, trialNumber, progress)
		}
	}
}

func (f FanOut) OnTrialComplete(workload model.Workload, trialNumber int, result model.TrialResult) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnTrialComplete(workload, trialNumber, result)
		}
	}
}

func (f FanOut) OnWorkloadComplete(workload model.Workload, result model.WorkloadResult) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnWorkloadComplete(workload, result)
		}
	}
}

func (f FanOut) OnBenchmarkComplete(result model.BenchmarkResult) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnBenchmarkComplete(result)
		}
	}
}

func (f FanOut) OnWarning(message string) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnWarning(message)
		}
	}
}

func (f FanOut) OnError(message string, cause error) {
	for _, t := range f.Targets {
		if t != nil {
			t.OnError(message, cause)
		}
	}
}
