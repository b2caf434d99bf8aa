package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects engine counters for the /metrics endpoint
type Metrics struct {
	sweeps        prometheus.Counter
	sweepDuration prometheus.Histogram
	checks        *prometheus.CounterVec
	probeAttempts prometheus.Counter
	targets       *prometheus.GaugeVec
	captures      *prometheus.CounterVec
	alerts        *prometheus.CounterVec
}

// NewMetrics registers the engine collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_sweeps_total",
			Help: "Total number of completed sweeps",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_sweep_duration_seconds",
			Help:    "Wall time of a full sweep in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_checks_total",
			Help: "Completed target checks by result",
		}, []string{"result"}),
		probeAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_probe_attempts_total",
			Help: "HTTP probe attempts including retries",
		}),
		targets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_targets",
			Help: "Targets per status after the last sweep",
		}, []string{"status"}),
		captures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_captures_total",
			Help: "Screenshot capture outcomes",
		}, []string{"result"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Down alerts by dispatch result",
		}, []string{"result"}),
	}
}

// The methods below are nil-safe so components can run without metrics.

func (m *Metrics) observeCheck(res ProbeResult) {
	if m == nil {
		return
	}
	result := "failure"
	if res.Success {
		result = "success"
	}
	m.checks.WithLabelValues(result).Inc()
	m.probeAttempts.Add(float64(res.Attempts))
}

func (m *Metrics) observeCapture(result string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(result).Inc()
}

func (m *Metrics) observeAlert(result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}

func (m *Metrics) observeSweep(seconds float64, targets []Target) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepDuration.Observe(seconds)

	counts := map[Status]int{
		StatusUnknown: 0,
		StatusUp:      0,
		StatusError:   0,
		StatusDown:    0,
	}
	for _, t := range targets {
		counts[t.Status]++
	}
	for status, n := range counts {
		m.targets.WithLabelValues(string(status)).Set(float64(n))
	}
}
