package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the master server
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Operation Metrics (create/read/write/remove/setTablets)
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TabletsServed     prometheus.Gauge
	IndexEntries      prometheus.Gauge

	// Log Metrics
	LogSegmentsTotal  prometheus.Gauge
	LogAppendedBytes  prometheus.Gauge

	// Recovery Metrics
	RecoveriesTotal         *prometheus.CounterVec
	RecoveryDuration        *prometheus.HistogramVec
	RecoverySegmentsTotal   prometheus.Counter
	RecoverySegmentBytes    prometheus.Counter
	RecoveryFetchFailures   *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initOperationMetrics()
	r.initLogMetrics()
	r.initRecoveryMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
