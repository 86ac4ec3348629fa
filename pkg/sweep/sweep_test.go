package sweep

import (
	"os"
	"testing"
	"time"

	"github.com/coreio-bench/diskbench/pkg/model"
)

func TestRunRejectsEmptyValues(t *testing.T) {
	_, err := Run(Options{Base: model.Workload{}, Dimension: QueueDepth})
	if err == nil {
		t.Fatal("expected an error for an empty value list")
	}
}

func TestRunSweepsQueueDepthEndToEnd(t *testing.T) {
	f, err := os.CreateTemp("", "diskbench-sweep")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	defer os.Remove(path)
	f.Close()

	base := model.Workload{
		Name:      "sweep-qd",
		Path:      path,
		FileSize:  1 << 20,
		BlockSize: 4096,
		Pattern:   model.Sequential,
		Threads:   1,
	}

	var stepsObserved int
	result, err := Run(Options{
		Base:             base,
		Dimension:        QueueDepth,
		Values:           []int{1, 2, 4},
		MeasuredDuration: 30 * time.Millisecond,
		Seed:             1,
		OnStep: func(i, total int, s Step) {
			stepsObserved++
		},
	})
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}

	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(result.Steps))
	}
	if stepsObserved != 3 {
		t.Errorf("OnStep called %d times, want 3", stepsObserved)
	}
	if result.Knee.X == 0 {
		t.Errorf("expected a non-zero knee X, got %+v", result.Knee)
	}
	if result.LinearRegion.InlierCount < 2 {
		t.Errorf("expected the dominant linear region to cover at least 2 of 3 points, got %+v", result.LinearRegion)
	}
}
