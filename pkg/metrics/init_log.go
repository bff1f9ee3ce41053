package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLogMetrics() {
	r.LogSegmentsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ramstore_log_segments_total",
			Help: "Number of resident log segments",
		},
	)

	r.LogAppendedBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ramstore_log_appended_bytes",
			Help: "Total bytes appended across resident log segments",
		},
	)
}
