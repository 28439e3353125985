package metrics

import (
	"mercator-hq/tagstream/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the flow of metrics through the enrichment pipeline.
//
// Metrics:
//   - tagstream_lines_read_total: input lines read
//   - tagstream_decode_errors_total: input lines skipped as undecodable
//   - tagstream_lookups_total: tag lookups by namespace and outcome
//   - tagstream_lookup_duration_seconds: tag lookup latency by namespace
//   - tagstream_lookups_in_flight: lookups currently running on workers
//   - tagstream_metrics_dropped_total: metrics dropped by namespace and reason
//   - tagstream_records_written_total: output records written
type PipelineMetrics struct {
	linesRead      prometheus.Counter
	decodeErrors   prometheus.Counter
	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	inFlight       prometheus.Gauge
	dropped        *prometheus.CounterVec
	recordsWritten prometheus.Counter
}

// NewPipelineMetrics creates and registers pipeline metrics with the provided
// registry.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		linesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lines_read_total",
				Help:      "Total number of input lines read",
			},
		),

		decodeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decode_errors_total",
				Help:      "Total number of input lines skipped because they could not be decoded",
			},
		),

		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lookups_total",
				Help:      "Total number of tag lookups by outcome",
			},
			[]string{"namespace", "outcome"},
		),

		lookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lookup_duration_seconds",
				Help:      "Tag lookup latency in seconds, including cache access",
				Buckets:   cfg.LookupDurationBuckets,
			},
			[]string{"namespace"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "lookups_in_flight",
				Help:      "Number of tag lookups currently running",
			},
		),

		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "metrics_dropped_total",
				Help:      "Total number of metrics dropped instead of written",
			},
			[]string{"namespace", "reason"},
		),

		recordsWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "records_written_total",
				Help:      "Total number of enriched records written",
			},
		),
	}

	registry.MustRegister(
		pm.linesRead,
		pm.decodeErrors,
		pm.lookups,
		pm.lookupDuration,
		pm.inFlight,
		pm.dropped,
		pm.recordsWritten,
	)

	return pm
}
