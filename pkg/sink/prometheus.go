package sink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coreio-bench/diskbench/pkg/model"
)

// Prometheus mirrors live trial progress into gauges and completed-trial
// counts into counters, registered against a caller-supplied Registerer.
// It never blocks the executor: every method is a plain Set/Inc.
type Prometheus struct {
	currentIOPS       prometheus.Gauge
	currentThroughput prometheus.Gauge
	trialsCompleted   prometheus.Counter
	errorsTotal       prometheus.Counter
}

// NewPrometheus builds and registers the metric set against reg. Passing
// the same reg to promhttp.HandlerFor exposes them for scraping.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		currentIOPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "diskbench",
			Name:      "current_iops",
			Help:      "IOPS observed in the most recent progress tick of the running trial.",
		}),
		currentThroughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "diskbench",
			Name:      "current_bytes_per_second",
			Help:      "Throughput observed in the most recent progress tick of the running trial.",
		}),
		trialsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diskbench",
			Name:      "trials_completed_total",
			Help:      "Trials completed across the whole run.",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "diskbench",
			Name:      "errors_total",
			Help:      "Errors reported through OnError.",
		}),
	}
	reg.MustRegister(p.currentIOPS, p.currentThroughput, p.trialsCompleted, p.errorsTotal)
	return p
}

func (p *Prometheus) OnBenchmarkStart(model.Plan)              {}
func (p *Prometheus) OnWorkloadStart(model.Workload, int, int) {}
func (p *Prometheus) OnTrialStart(model.Workload, int, int)    {}

func (p *Prometheus) OnTrialProgress(_ model.Workload, _ int, progress model.Progress) {
	p.currentIOPS.Set(progress.CurrentIOPS)
	p.currentThroughput.Set(progress.CurrentBytesPerSecond)
}

func (p *Prometheus) OnTrialComplete(model.Workload, int, model.TrialResult) {
	p.trialsCompleted.Inc()
}

func (p *Prometheus) OnWorkloadComplete(model.Workload, model.WorkloadResult) {}
func (p *Prometheus) OnBenchmarkComplete(model.BenchmarkResult)               {}
func (p *Prometheus) OnWarning(string)                                       {}

func (p *Prometheus) OnError(string, error) {
	p.errorsTotal.Inc()
}
