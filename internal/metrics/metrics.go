// Package metrics wires the gateway's Prometheus instruments, grounded
// on the mini-service's middleware/metrics.go consumer shape: request
// counters and a duration histogram keyed by method/path/status, plus
// an in-flight gauge.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  prometheus.Gauge

	SubmissionsTotal *prometheus.CounterVec
	ChainRPCDuration *prometheus.HistogramVec
	NonceCacheSize   prometheus.Gauge
}

// New registers and returns the gateway's metrics against the default
// registry.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by method, path, and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_http_active_requests",
			Help: "Number of HTTP requests currently being served.",
		}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_submissions_total",
			Help: "Total transaction submissions by outcome slug.",
		}, []string{"outcome"}),
		ChainRPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_chain_rpc_duration_seconds",
			Help:    "Upstream chain RPC call duration in seconds by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		NonceCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_nonce_cache_size",
			Help: "Number of entries currently held in the nonce hint cache.",
		}),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPActiveRequests,
		m.SubmissionsTotal,
		m.ChainRPCDuration,
		m.NonceCacheSize,
	)
	return m
}

// ObserveSubmission records a completed submission pipeline run by its
// apierr slug (or "success"). Satisfies internal/submission's Metrics
// interface.
func (m *Metrics) ObserveSubmission(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRPCDuration records how long an upstream chain RPC method
// took. Satisfies internal/chainclient's Metrics interface.
func (m *Metrics) ObserveRPCDuration(method string, seconds float64) {
	m.ChainRPCDuration.WithLabelValues(method).Observe(seconds)
}

// SetNonceCacheSize records the current entry count of the nonce hint
// cache, sampled periodically by the composition root.
func (m *Metrics) SetNonceCacheSize(n int) {
	m.NonceCacheSize.Set(float64(n))
}
