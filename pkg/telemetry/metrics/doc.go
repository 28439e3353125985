// Package metrics provides Prometheus metrics for the tagstream daemon.
//
// A single Collector is created at startup and passed to every component
// that reports statistics. It satisfies the observer interfaces of
// enrichment.Scheduler, tagcache.Cache and providers.HTTPProvider:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	cache, _ := tagcache.New(tagcache.Config{Observer: collector})
//	provider := providers.NewHTTPProvider(pcfg, signer, providers.WithObserver(collector))
//
// # Metrics Categories
//
//   - Pipeline: lines read, decode errors, lookups by outcome, lookup latency,
//     in-flight lookups, dropped metrics, records written
//   - Cache: hits, misses, evictions and size per cache
//   - Provider: control-plane requests, latency, errors and health
//
// # Cardinality
//
// The namespace label comes from the input stream. After 256 distinct
// namespaces further values are reported as "other".
//
// # Endpoint
//
// Collector.Handler serves the registry; the telemetry server mounts it at
// telemetry.metrics.path (default /metrics).
package metrics
