package metrics

import (
	"sync"

	"mercator-hq/tagstream/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// otherLabel replaces label values beyond the cardinality limit.
const otherLabel = "other"

// defaultMaxNamespaces bounds the distinct namespace label values. Namespaces
// come from the input stream, so a misbehaving collector could otherwise
// create an unbounded number of series.
const defaultMaxNamespaces = 256

// Collector owns every Prometheus metric of the daemon. It implements the
// observer interfaces of the enrichment scheduler, the tag cache and the
// provider transport, so one instance is handed to all of them.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	pipelineMetrics *PipelineMetrics
	providerMetrics *ProviderMetrics
	cacheMetrics    *CacheMetrics

	namespaces *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a fresh one is created.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.LookupDurationBuckets) == 0 {
		cfg.LookupDurationBuckets = append([]float64(nil), config.DefaultLookupDurationBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		pipelineMetrics: NewPipelineMetrics(&cfg, registry),
		providerMetrics: NewProviderMetrics(&cfg, registry),
		cacheMetrics:    NewCacheMetrics(&cfg, registry),
		namespaces:      NewCardinalityLimiter(defaultMaxNamespaces),
	}
}

// namespace returns ns, or otherLabel once the namespace limit is reached.
func (c *Collector) namespace(ns string) string {
	if c.namespaces.Allow(ns) {
		return ns
	}
	return otherLabel
}

// RecordLineRead counts one input line.
func (c *Collector) RecordLineRead() {
	c.pipelineMetrics.linesRead.Inc()
}

// RecordDecodeError counts an input line that was skipped because it could
// not be decoded.
func (c *Collector) RecordDecodeError() {
	c.pipelineMetrics.decodeErrors.Inc()
}

// RecordLookup records a finished tag lookup.
//
// Parameters:
//   - namespace: metric namespace (e.g. "oci_compute")
//   - outcome: "resolved", "empty", "failed" or "timeout"
//   - seconds: lookup duration including cache access
func (c *Collector) RecordLookup(namespace, outcome string, seconds float64) {
	ns := c.namespace(namespace)
	c.pipelineMetrics.lookups.WithLabelValues(ns, outcome).Inc()
	c.pipelineMetrics.lookupDuration.WithLabelValues(ns).Observe(seconds)
}

// RecordDropped counts a metric that was dropped instead of written.
func (c *Collector) RecordDropped(namespace, reason string) {
	c.pipelineMetrics.dropped.WithLabelValues(c.namespace(namespace), reason).Inc()
}

// AddInFlight adjusts the number of lookups currently running on workers.
func (c *Collector) AddInFlight(delta int) {
	c.pipelineMetrics.inFlight.Add(float64(delta))
}

// RecordRecordsWritten counts output records.
func (c *Collector) RecordRecordsWritten(n int) {
	c.pipelineMetrics.recordsWritten.Add(float64(n))
}

// RecordProviderRequest records one control-plane call.
//
// Parameters:
//   - provider: provider name (e.g. "oci")
//   - status: "success" or an error type
//   - latencySeconds: call latency including retries
func (c *Collector) RecordProviderRequest(provider, status string, latencySeconds float64) {
	c.providerMetrics.RecordRequest(provider, status)
	c.providerMetrics.RecordLatency(provider, latencySeconds)
}

// RecordProviderError records an error returned by a provider.
func (c *Collector) RecordProviderError(provider, errorType string) {
	c.providerMetrics.RecordError(provider, errorType)
}

// UpdateProviderHealth updates the health gauge of a provider.
// The gauge is 1 when healthy and 0 otherwise.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	c.providerMetrics.UpdateHealth(provider, healthy)
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheName string) {
	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheName string) {
	c.cacheMetrics.RecordMiss(cacheName)
}

// RecordCacheEviction records an entry evicted to make room for another.
func (c *Collector) RecordCacheEviction(cacheName string) {
	c.cacheMetrics.RecordEviction(cacheName)
}

// UpdateCacheSize updates the current number of entries in a cache.
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	c.cacheMetrics.UpdateSize(cacheName, size)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter bounds the number of distinct values admitted for a
// label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting up to maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is admitted. Values seen before are always
// admitted; new values are admitted until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
