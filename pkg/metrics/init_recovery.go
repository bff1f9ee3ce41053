package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRecoveryMetrics() {
	r.RecoveriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramstore_recoveries_total",
			Help: "Total number of recovery runs",
		},
		[]string{"status"},
	)

	r.RecoveryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ramstore_recovery_duration_seconds",
			Help:    "Recovery run duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"status"},
	)

	r.RecoverySegmentsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "ramstore_recovery_segments_total",
			Help: "Total number of recovery segments replayed",
		},
	)

	r.RecoverySegmentBytes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "ramstore_recovery_segment_bytes_total",
			Help: "Total bytes of recovery segment data replayed",
		},
	)

	r.RecoveryFetchFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramstore_recovery_fetch_failures_total",
			Help: "Recovery data fetches that failed and fell through to the next backup",
		},
		[]string{"locator"},
	)
}
