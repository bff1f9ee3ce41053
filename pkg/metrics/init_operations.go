package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOperationMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramstore_operations_total",
			Help: "Total number of object operations",
		},
		[]string{"operation", "status"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ramstore_operation_duration_seconds",
			Help:    "Object operation duration in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
		[]string{"operation"},
	)

	r.TabletsServed = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ramstore_tablets_served",
			Help: "Number of tablets currently served by this master",
		},
	)

	r.IndexEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "ramstore_index_entries",
			Help: "Number of entries in the object index (objects plus tombstones)",
		},
	)
}
