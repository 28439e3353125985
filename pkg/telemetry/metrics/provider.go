package metrics

import (
	"mercator-hq/tagstream/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks calls to the resource metadata provider.
//
// Metrics:
//   - tagstream_provider_health: provider health status (1=healthy, 0=unhealthy)
//   - tagstream_provider_latency_seconds: control-plane call latency
//   - tagstream_provider_errors_total: provider errors by type
//   - tagstream_provider_requests_total: control-plane calls by status
type ProviderMetrics struct {
	health   *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	requests *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Provider API call latency in seconds",
				Buckets:   cfg.LookupDurationBuckets,
			},
			[]string{"provider"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of provider errors by type",
			},
			[]string{"provider", "error_type"},
		),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total number of requests to each provider",
			},
			[]string{"provider", "status"},
		),
	}

	registry.MustRegister(
		pm.health,
		pm.latency,
		pm.errors,
		pm.requests,
	)

	return pm
}

// UpdateHealth sets the health gauge of a provider.
//
// Parameters:
//   - provider: Provider name (e.g., "oci")
//   - healthy: Whether recent requests succeeded
//
// Example:
//
//	pm.UpdateHealth("oci", true)
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

// RecordLatency records the latency of a provider API call.
//
// Parameters:
//   - provider: Provider name
//   - latencySeconds: Duration of the call including retries, in seconds
//
// Example:
//
//	pm.RecordLatency("oci", 0.120)
func (pm *ProviderMetrics) RecordLatency(provider string, latencySeconds float64) {
	pm.latency.WithLabelValues(provider).Observe(latencySeconds)
}

// RecordError records an error from a provider.
//
// Error types follow providers.ErrorType:
//   - "rate_limit": 429 from the control plane
//   - "timeout": request timeout
//   - "auth": 401 or 403
//   - "not_found": 404
//   - "server_error": 5xx
//   - "network": connectivity error
//   - "parse": response body could not be decoded
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errors.WithLabelValues(provider, errorType).Inc()
}

// RecordRequest counts a request to a provider.
//
// Parameters:
//   - provider: Provider name
//   - status: HTTP status code, or "error" when no response arrived
//
// Example:
//
//	pm.RecordRequest("oci", "200")
func (pm *ProviderMetrics) RecordRequest(provider, status string) {
	pm.requests.WithLabelValues(provider, status).Inc()
}
