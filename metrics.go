package extbuild

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records stage timings and run outcomes in a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.GaugeVec
	runs          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "extbuild",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent reaching each pipeline stage in the last run.",
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "extbuild",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal state.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.stageDuration, m.runs)
	return m
}

// ObserveStage records how long it took to reach stage.
func (m *Metrics) ObserveStage(stage State, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage.String()).Set(d.Seconds())
}

// ObserveRun counts a run that ended in the given terminal state.
func (m *Metrics) ObserveRun(outcome State) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome.String()).Inc()
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
