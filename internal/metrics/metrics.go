package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRepaired = "repaired"
	OutcomeFailed   = "failed"
)

// Recorder collects fetch counters in its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	fetches  *prometheus.CounterVec
	records  *prometheus.CounterVec
	fallback *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reup",
			Name:      "fetches_total",
			Help:      "Fetches by host, terminal path and outcome.",
		}, []string{"host", "path", "outcome"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reup",
			Name:      "records_total",
			Help:      "Records returned to callers.",
		}, []string{"host"}),
		fallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reup",
			Name:      "fallbacks_total",
			Help:      "Single-shot failures that entered the streaming fallback.",
		}, []string{"host"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reup",
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of a complete fetch call.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"host"}),
	}
	r.registry.MustRegister(r.fetches, r.records, r.fallback, r.duration)
	return r
}

// ObserveFetch records a finished fetch call
func (r *Recorder) ObserveFetch(host, path, outcome string, records int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(host, path, outcome).Inc()
	r.records.WithLabelValues(host).Add(float64(records))
	r.duration.WithLabelValues(host).Observe(elapsed.Seconds())
}

// ObserveFallback records a single-shot failure
func (r *Recorder) ObserveFallback(host string) {
	if r == nil {
		return
	}
	r.fallback.WithLabelValues(host).Inc()
}

// WriteTextfile writes all metrics in the text exposition format,
// for pickup by a node_exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
