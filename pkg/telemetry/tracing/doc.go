// Package tracing provides OpenTelemetry tracing for tagstream.
//
// Every tag lookup runs in an "enrichment.lookup" span carrying the metric
// namespace, the resource ID and the lookup outcome. Spans are exported to
// an OTLP gRPC collector.
//
// # Usage
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, tracing.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "enrichment.lookup")
//	defer span.End()
//	tracing.SetLookupAttributes(span, namespace, resourceID)
//
// When tracing is disabled, New returns a Tracer backed by the noop
// provider.
//
// # Sampling
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: parent_ratio   # always, never, ratio, parent_ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    insecure: true
//
// "ratio" samples by trace ID alone. "parent_ratio" follows the decision of a
// sampled or unsampled parent and applies the ratio to root spans only.
//
// # HTTP Integration
//
// HTTPMiddleware extracts W3C Trace Context from requests to the telemetry
// server, so probes and scrapes can be correlated with a caller's trace.
package tracing
