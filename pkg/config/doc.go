// Package config provides configuration management for tagstream.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults, so the daemon
// can run from the environment alone.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.Load(ctx, "config.yaml")
//
// Load with an empty path reads DefaultConfigPath when it exists and falls
// back to the defaults otherwise.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TAGSTREAM_SECTION_FIELD
// and are decoded with go-envconfig:
//
//   - TAGSTREAM_PIPELINE_WORKERS overrides pipeline.workers
//   - TAGSTREAM_OCI_REGION overrides oci.region
//   - TAGSTREAM_OCI_ENDPOINTS=core:http://localhost:8080 overrides oci.endpoints
//   - TAGSTREAM_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// TAG_DISCOVER_WORKERS and OCI_CONFIG_PATH are also honoured; the prefixed
// form wins when both are set.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - pipeline.workers: at least one worker is required
//	  - cache.ttl: ttl is required for the lru-ttl algorithm
//
// # Example Configuration
//
//	pipeline:
//	  workers: 10
//	  lookup_timeout: 30s
//
//	cache:
//	  capacity: 128
//	  algorithm: lfu
//	  purge_schedule: "@every 6h"
//
//	oci:
//	  auth: auto
//	  profile: DEFAULT
//	  watch_credentials: true
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
//	    listen_address: 127.0.0.1:9273
package config
