package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the samplers. A nil *Metrics records nothing.
type Metrics struct {
	sampleDuration *prometheus.HistogramVec
	degradedReads  *prometheus.CounterVec
	processSkips   *prometheus.CounterVec
}

// NewMetrics creates the sampler instruments and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sampleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hostsnap",
			Name:      "sample_duration_seconds",
			Help:      "Wall time of one collection operation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		degradedReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostsnap",
			Name:      "degraded_reads_total",
			Help:      "Reads that returned no data and fell back to a default value.",
		}, []string{"source"}),
		processSkips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hostsnap",
			Name:      "process_skips_total",
			Help:      "Process instances left out of a process sample, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) observe(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.sampleDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) degraded(source string) {
	if m == nil {
		return
	}
	m.degradedReads.WithLabelValues(source).Inc()
}

func (m *Metrics) skipped(reason skipReason) {
	if m == nil {
		return
	}
	m.processSkips.WithLabelValues(string(reason)).Inc()
}
