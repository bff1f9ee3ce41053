package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight increments the in-flight request gauge
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight request gauge
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordOperation records an object operation
func (r *Registry) RecordOperation(operation, status string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(operation, status).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetLogStats updates the log gauges
func (r *Registry) SetLogStats(segments int, appendedBytes uint64) {
	r.LogSegmentsTotal.Set(float64(segments))
	r.LogAppendedBytes.Set(float64(appendedBytes))
}

// SetIndexEntries updates the index entry gauge
func (r *Registry) SetIndexEntries(entries int) {
	r.IndexEntries.Set(float64(entries))
}

// SetTabletsServed updates the served tablet gauge
func (r *Registry) SetTabletsServed(tablets int) {
	r.TabletsServed.Set(float64(tablets))
}

// RecordRecovery records a completed (or failed) recovery run
func (r *Registry) RecordRecovery(status string, duration time.Duration) {
	r.RecoveriesTotal.WithLabelValues(status).Inc()
	r.RecoveryDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRecoverySegment records one replayed recovery segment
func (r *Registry) RecordRecoverySegment(sizeBytes int) {
	r.RecoverySegmentsTotal.Inc()
	r.RecoverySegmentBytes.Add(float64(sizeBytes))
}

// RecordRecoveryFetchFailure records a failed getRecoveryData fetch
func (r *Registry) RecordRecoveryFetchFailure(locator string) {
	r.RecoveryFetchFailures.WithLabelValues(locator).Inc()
}

// Handler returns an HTTP handler exposing the registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
