// Package telemetry groups tagstream's observability packages.
//
// # Components
//
//   - logging: structured slog logging to stderr with OCID redaction
//   - metrics: Prometheus metrics for the pipeline, tag cache and OCI calls
//   - tracing: OpenTelemetry spans around tag lookups
//   - health: liveness and readiness checks served by pkg/server
//
// Standard output carries enriched metrics only, so nothing in these
// packages writes to it.
//
// # Usage
//
//	l, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// The collector implements the observer interfaces of the enrichment,
// tagcache and providers packages and is passed to their constructors.
package telemetry
