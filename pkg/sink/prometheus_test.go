package sink

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/coreio-bench/diskbench/pkg/model"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestPrometheusTracksProgressAndCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnTrialProgress(model.Workload{}, 1, model.Progress{CurrentIOPS: 1234, CurrentBytesPerSecond: 5_000_000})
	if got := gaugeValue(t, p.currentIOPS); got != 1234 {
		t.Errorf("currentIOPS = %v, want 1234", got)
	}
	if got := gaugeValue(t, p.currentThroughput); got != 5_000_000 {
		t.Errorf("currentThroughput = %v, want 5000000", got)
	}

	p.OnTrialComplete(model.Workload{}, 1, model.TrialResult{})
	p.OnTrialComplete(model.Workload{}, 2, model.TrialResult{})
	if got := counterValue(t, p.trialsCompleted); got != 2 {
		t.Errorf("trialsCompleted = %v, want 2", got)
	}

	p.OnError("boom", nil)
	if got := counterValue(t, p.errorsTotal); got != 1 {
		t.Errorf("errorsTotal = %v, want 1", got)
	}
}

func TestNewPrometheusRegistersAgainstTheGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 4 {
		t.Errorf("gathered %d metric families, want 4", len(families))
	}
}
