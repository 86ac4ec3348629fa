package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coreio-bench/diskbench/pkg/bench"
	"github.com/coreio-bench/diskbench/pkg/model"
)

func validPlan(t *testing.T, path string) model.Plan {
	t.Helper()
	return model.Plan{
		Workloads: []model.Workload{{
			Name:       "w1",
			Path:       path,
			FileSize:   1 << 20,
			BlockSize:  4096,
			QueueDepth: 4,
			Threads:    1,
		}},
		Trials:           1,
		MeasuredDuration: 50 * time.Millisecond,
	}
}

func TestValidateRejectsEmptyWorkloads(t *testing.T) {
	p := model.Plan{Trials: 1, MeasuredDuration: time.Second}
	if err := Validate(p); err == nil {
		t.Fatal("expected an error for a plan with no workloads")
	} else if !bench.Is(err, bench.InvalidPlan) {
		t.Errorf("expected InvalidPlan, got %v", err)
	}
}

func TestValidateRejectsZeroTrials(t *testing.T) {
	p := validPlan(t, "/tmp/whatever")
	p.Trials = 0
	if err := Validate(p); err == nil {
		t.Fatal("expected an error for trials=0")
	}
}

func TestValidateRejectsNonPositiveMeasuredDuration(t *testing.T) {
	p := validPlan(t, "/tmp/whatever")
	p.MeasuredDuration = 0
	if err := Validate(p); err == nil {
		t.Fatal("expected an error for measured_duration=0")
	}
}

func TestValidateRejectsBadWorkloadWritePercent(t *testing.T) {
	p := validPlan(t, "/tmp/whatever")
	p.Workloads[0].WritePercent = 150
	err := Validate(p)
	if err == nil {
		t.Fatal("expected an error for write_percent=150")
	}
	if !bench.Is(err, bench.InvalidPlan) {
		t.Errorf("expected InvalidPlan, got %v", err)
	}
}

func TestValidateAcceptsAWellFormedPlan(t *testing.T) {
	p := validPlan(t, "/tmp/whatever")
	if err := Validate(p); err != nil {
		t.Errorf("unexpected error for a well-formed plan: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "plan.yaml")

	p := validPlan(t, filepath.Join(dir, "data.bin"))
	p.Seed = 42
	p.ComputeConfidenceIntervals = true

	if err := Save(yamlPath, p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Seed != 42 {
		t.Errorf("Seed = %d, want 42", loaded.Seed)
	}
	if !loaded.ComputeConfidenceIntervals {
		t.Error("ComputeConfidenceIntervals did not round-trip")
	}
	if len(loaded.Workloads) != 1 || loaded.Workloads[0].Name != "w1" {
		t.Errorf("workloads did not round-trip: %+v", loaded.Workloads)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/plan.yaml"); err == nil {
		t.Fatal("expected an error loading a nonexistent plan file")
	}
}

func TestEffectiveSeedIsDistinctPerWorkloadAndTrial(t *testing.T) {
	seen := map[int64]bool{}
	for w := 0; w < 3; w++ {
		for tr := 1; tr <= 3; tr++ {
			s := effectiveSeed(100, w, tr)
			if seen[s] {
				t.Fatalf("duplicate effective seed %d for workload %d trial %d", s, w, tr)
			}
			seen[s] = true
		}
	}
}

func TestRunRejectsInvalidPlanWithoutTouchingDisk(t *testing.T) {
	_, err := Run(model.Plan{}, Options{})
	if err == nil {
		t.Fatal("expected Run to reject an invalid plan")
	}
	if !bench.Is(err, bench.InvalidPlan) {
		t.Errorf("expected InvalidPlan, got %v", err)
	}
}

func TestRunEndToEndSingleWorkload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	p := validPlan(t, path)
	p.Seed = 7

	result, err := Run(p, Options{})
	if err != nil {
		t.Skipf("trial execution unavailable in this environment: %v", err)
	}
	if len(result.Workloads) != 1 {
		t.Fatalf("expected 1 workload result, got %d", len(result.Workloads))
	}
	if len(result.Workloads[0].Trials) != 1 {
		t.Fatalf("expected 1 trial, got %d", len(result.Workloads[0].Trials))
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected prepared file to exist: %v", err)
	}
}

func TestRunDeletesFileOnCompleteWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	p := validPlan(t, path)
	p.DeleteOnComplete = true

	_, err := Run(p, Options{})
	if err != nil {
		t.Skipf("trial execution unavailable in this environment: %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("expected file to be removed after a delete_on_complete run, stat error = %v", statErr)
	}
}

func TestRunRemovesCoveringDirectoryWhenDeleteOnComplete(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "run-data")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sub, "data.bin")

	p := validPlan(t, path)
	p.DeleteOnComplete = true

	_, err := Run(p, Options{})
	if err != nil {
		t.Skipf("trial execution unavailable in this environment: %v", err)
	}
	if _, statErr := os.Stat(sub); !os.IsNotExist(statErr) {
		t.Errorf("expected covering directory to be removed once empty, stat error = %v", statErr)
	}
}

func TestRunPropagatesCancellationBeforeFirstWorkload(t *testing.T) {
	dir := t.TempDir()
	p := validPlan(t, filepath.Join(dir, "data.bin"))

	cancel := make(chan struct{})
	close(cancel)

	_, err := Run(p, Options{Cancel: cancel})
	if err == nil {
		t.Fatal("expected Cancelled error")
	}
	if !bench.Is(err, bench.Cancelled) {
		t.Errorf("expected Cancelled, got %v", err)
	}
}
