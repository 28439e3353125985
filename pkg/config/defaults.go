package config

import "time"

// Default values for configuration fields.
const (
	// Pipeline defaults
	DefaultWorkers            = 10
	DefaultLookupTimeout      = 30 * time.Second
	DefaultMaxLineBytes       = 1 << 20 // 1MiB
	DefaultTimestampPrecision = "auto"
	DefaultShutdownTimeout    = 30 * time.Second

	// Cache defaults
	DefaultCacheCapacity  = 128
	DefaultCacheAlgorithm = "lfu"

	// OCI defaults
	DefaultOCIAuth        = "auto"
	DefaultOCIConfigPath  = "~/.oci/config"
	DefaultOCIProfile     = "DEFAULT"
	DefaultOCIDomain      = "oraclecloud.com"
	DefaultOCITimeout     = 20 * time.Second
	DefaultOCIMaxAttempts = 3
	DefaultOCIMaxBackoff  = 3 * time.Second

	// Telemetry defaults
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultMetricsEnabled      = false
	DefaultMetricsAddress      = "127.0.0.1:9273"
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsNamespace    = "tagstream"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "parent_ratio"
	DefaultTracingSampleRatio  = 0.1
	DefaultTracingEndpoint     = "localhost:4317"
	DefaultTracingTimeout      = 10 * time.Second
	DefaultTracingServiceName  = "tagstream"
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultLookupDurationBuckets are the lookup latency histogram buckets.
var DefaultLookupDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for all zero-valued fields.
// Boolean fields keep their value because false cannot be told apart from
// unset.
func ApplyDefaults(cfg *Config) {
	applyPipelineDefaults(&cfg.Pipeline)
	applyCacheDefaults(&cfg.Cache)
	applyOCIDefaults(&cfg.OCI)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyPipelineDefaults(p *PipelineConfig) {
	if p.Workers == 0 {
		p.Workers = DefaultWorkers
	}
	if p.LookupTimeout == 0 {
		p.LookupTimeout = DefaultLookupTimeout
	}
	if p.MaxLineBytes == 0 {
		p.MaxLineBytes = DefaultMaxLineBytes
	}
	if p.TimestampPrecision == "" {
		p.TimestampPrecision = DefaultTimestampPrecision
	}
	if p.ShutdownTimeout == 0 {
		p.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.Capacity == 0 {
		c.Capacity = DefaultCacheCapacity
	}
	if c.Algorithm == "" {
		c.Algorithm = DefaultCacheAlgorithm
	}
}

func applyOCIDefaults(o *OCIConfig) {
	if o.Auth == "" {
		o.Auth = DefaultOCIAuth
	}
	if o.ConfigPath == "" {
		o.ConfigPath = DefaultOCIConfigPath
	}
	if o.Profile == "" {
		o.Profile = DefaultOCIProfile
	}
	if o.Domain == "" {
		o.Domain = DefaultOCIDomain
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultOCITimeout
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultOCIMaxAttempts
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = DefaultOCIMaxBackoff
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	// Logging
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}

	// Metrics
	if t.Metrics.ListenAddress == "" {
		t.Metrics.ListenAddress = DefaultMetricsAddress
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.LookupDurationBuckets) == 0 {
		t.Metrics.LookupDurationBuckets = append([]float64(nil), DefaultLookupDurationBuckets...)
	}

	// Tracing
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}

	// Health
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
