package config

import "time"

// Config is the root configuration structure for tagstream.
// It contains the enrichment pipeline, tag cache, OCI control-plane access
// and telemetry settings.
type Config struct {
	// Pipeline contains the reader loop and worker pool configuration.
	Pipeline PipelineConfig `yaml:"pipeline" env:", prefix=PIPELINE_"`

	// Cache contains tag cache sizing and eviction configuration.
	Cache CacheConfig `yaml:"cache" env:", prefix=CACHE_"`

	// OCI contains credential selection, retry policy and endpoint
	// configuration for the OCI control plane.
	OCI OCIConfig `yaml:"oci" env:", prefix=OCI_"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry" env:", prefix=TELEMETRY_"`
}

// PipelineConfig contains configuration for the enrichment pipeline.
type PipelineConfig struct {
	// Workers is the number of concurrent tag lookups.
	// Default: 10
	Workers int `yaml:"workers" env:"WORKERS"`

	// LookupTimeout bounds a single resource tag lookup, retries included.
	// Default: 30s
	LookupTimeout time.Duration `yaml:"lookup_timeout" env:"LOOKUP_TIMEOUT"`

	// MaxLineBytes is the longest accepted input line.
	// Default: 1MiB
	MaxLineBytes int `yaml:"max_line_bytes" env:"MAX_LINE_BYTES"`

	// TimestampPrecision is the unit of numeric datapoint timestamps.
	// Options: "auto", "s", "ms", "us", "ns"
	// Default: "auto"
	TimestampPrecision string `yaml:"timestamp_precision" env:"TIMESTAMP_PRECISION"`

	// ShutdownTimeout bounds how long in-flight lookups may run after the
	// input ends or the process is signalled.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// CacheConfig contains tag cache configuration.
type CacheConfig struct {
	// Capacity is the maximum number of cached resources.
	// Default: 128
	Capacity int `yaml:"capacity" env:"CAPACITY"`

	// Algorithm is the eviction policy.
	// Options: "lfu", "lru", "lru-ttl"
	// Default: "lfu"
	Algorithm string `yaml:"algorithm" env:"ALGORITHM"`

	// TTL is the entry lifetime. Required by "lru-ttl", ignored otherwise.
	TTL time.Duration `yaml:"ttl" env:"TTL"`

	// PurgeSchedule empties the cache on a cron schedule
	// (e.g. "@hourly", "0 */6 * * *"). Empty disables purging.
	PurgeSchedule string `yaml:"purge_schedule" env:"PURGE_SCHEDULE"`
}

// OCIConfig contains OCI control-plane configuration.
type OCIConfig struct {
	// Auth selects the credential source.
	// Options: "auto", "config_file", "instance_principal"
	// Default: "auto" (config file, then instance principal)
	Auth string `yaml:"auth" env:"AUTH"`

	// ConfigPath is the OCI SDK configuration file.
	// Default: "~/.oci/config"
	ConfigPath string `yaml:"config_path" env:"CONFIG_PATH"`

	// Profile is the profile read from ConfigPath.
	// Default: "DEFAULT"
	Profile string `yaml:"profile" env:"PROFILE"`

	// Region overrides the region of the credentials.
	Region string `yaml:"region" env:"REGION"`

	// Domain is the realm's second-level domain.
	// Default: "oraclecloud.com"
	Domain string `yaml:"domain" env:"DOMAIN"`

	// Timeout bounds a single HTTP attempt.
	// Default: 20s
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// MaxAttempts is the number of attempts per request, first included.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`

	// MaxBackoff caps the jittered wait between attempts.
	// Default: 3s
	MaxBackoff time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`

	// Endpoints overrides the base URL of individual services, keyed by
	// service name (e.g. "core", "objectstorage").
	Endpoints map[string]string `yaml:"endpoints" env:"ENDPOINTS"`

	// WatchCredentials reloads the request signer when ConfigPath changes.
	// Default: false
	WatchCredentials bool `yaml:"watch_credentials" env:"WATCH_CREDENTIALS"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging" env:", prefix=LOGGING_"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics" env:", prefix=METRICS_"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing" env:", prefix=TRACING_"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health" env:", prefix=HEALTH_"`
}

// LoggingConfig contains logging configuration. Logs always go to stderr;
// stdout carries the enriched records.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" env:"LEVEL"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format" env:"FORMAT"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source" env:"ADD_SOURCE"`

	// RedactOCIDs masks the unique part of resource OCIDs in log fields.
	// Default: false
	RedactOCIDs bool `yaml:"redact_ocids" env:"REDACT_OCIDS"`

	// RedactPatterns contains custom redaction patterns.
	// Each pattern has a name, regex, and replacement string.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the telemetry HTTP server is started.
	// Default: false
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// ListenAddress is the address of the telemetry HTTP server.
	// Default: "127.0.0.1:9273"
	ListenAddress string `yaml:"listen_address" env:"LISTEN_ADDRESS"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path" env:"PATH"`

	// Namespace is the metric name prefix.
	// Default: "tagstream"
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	// Subsystem is the metric subsystem name.
	// Default: ""
	Subsystem string `yaml:"subsystem" env:"SUBSYSTEM"`

	// LookupDurationBuckets defines histogram buckets for tag lookup
	// latency (seconds).
	// Default: [0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30]
	LookupDurationBuckets []float64 `yaml:"lookup_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parent_ratio"
	// Default: "parent_ratio"
	Sampler string `yaml:"sampler" env:"SAMPLER"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`

	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure" env:"INSECURE"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// ServiceName is the service name in traces.
	// Default: "tagstream"
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// HealthConfig contains health check endpoint configuration. The endpoints
// are served by the telemetry HTTP server.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path" env:"LIVENESS_PATH"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path" env:"READINESS_PATH"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout" env:"CHECK_TIMEOUT"`
}
