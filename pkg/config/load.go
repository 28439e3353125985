package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// TAGSTREAM_PIPELINE_WORKERS overrides pipeline.workers.
const EnvPrefix = "TAGSTREAM_"

// DefaultConfigPath is read when no configuration file is given. Unlike an
// explicit path it may be absent.
const DefaultConfigPath = "/etc/tagstream/config.yaml"

// compatEnv holds the unprefixed variables understood by earlier
// deployments. Prefixed variables take precedence over them.
type compatEnv struct {
	Workers       int    `env:"TAG_DISCOVER_WORKERS"`
	OCIConfigPath string `env:"OCI_CONFIG_PATH"`
}

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use Load for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readFile(path, false)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Load loads configuration from path and applies overrides from the process
// environment. An empty path reads DefaultConfigPath if it exists.
//
// The loading sequence is:
// 1. Default values
// 2. Values from the YAML file
// 3. Environment variable overrides
// 4. Validation
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWithLookuper(ctx, path, envconfig.OsLookuper())
}

// LoadWithLookuper is Load with the environment read from lookuper.
func LoadWithLookuper(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigPath
	}

	cfg, err := readFile(path, optional)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(ctx, cfg, lookuper); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// readFile parses path over the defaults. A missing optional file yields
// the defaults.
func readFile(path string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to cfg. Set
// variables always replace file values.
func applyEnvOverrides(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	var compat compatEnv
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &compat,
		Lookuper: lookuper,
	}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if compat.Workers != 0 {
		cfg.Pipeline.Workers = compat.Workers
	}
	if compat.OCIConfigPath != "" {
		cfg.OCI.ConfigPath = compat.OCIConfigPath
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           cfg,
		Lookuper:         envconfig.PrefixLookuper(EnvPrefix, lookuper),
		DefaultOverwrite: true,
	}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}
