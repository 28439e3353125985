package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tagstream/pkg/cli"
	"mercator-hq/tagstream/pkg/config"
	"mercator-hq/tagstream/pkg/providers"
	"mercator-hq/tagstream/pkg/resolver"
	"mercator-hq/tagstream/pkg/resolver/oci"
	"mercator-hq/tagstream/pkg/tagcache"
	"mercator-hq/tagstream/pkg/telemetry/logging"
	"mercator-hq/tagstream/pkg/telemetry/metrics"
)

// credentialDebounce collapses the burst of events an editor produces when
// saving the OCI config file.
const credentialDebounce = 500 * time.Millisecond

// app holds the components shared by the commands that talk to OCI.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	creds     *providers.Credentials
	collector *metrics.Collector
	provider  *providers.HTTPProvider
	registry  *resolver.Registry
	cache     *tagcache.Cache
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", "failed to load config", err)
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, cli.NewConfigError("--log-level", "invalid override", err)
		}
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", "invalid logging configuration", err)
	}
	logger := l.Slog()
	slog.SetDefault(logger)
	return logger, nil
}

func credentialsConfig(cfg config.OCIConfig) providers.CredentialsConfig {
	return providers.CredentialsConfig{
		Mode:       providers.AuthMode(cfg.Auth),
		ConfigPath: cfg.ConfigPath,
		Profile:    cfg.Profile,
		Region:     cfg.Region,
	}
}

// endpoints resolves the per-service base URLs for region.
func endpoints(cfg config.OCIConfig, region string) (oci.Endpoints, error) {
	e := oci.Endpoints{
		Region: region,
		Domain: cfg.Domain,
	}
	if len(cfg.Endpoints) > 0 {
		e.Overrides = make(map[oci.Service]string, len(cfg.Endpoints))
		for name, url := range cfg.Endpoints {
			s, err := oci.ParseService(name)
			if err != nil {
				return oci.Endpoints{}, cli.NewConfigError("oci.endpoints", "invalid service", err)
			}
			e.Overrides[s] = url
		}
	}
	return e, nil
}

// newApp wires the control-plane client, resolver registry and tag cache.
// Metrics are registered on registry.
func newApp(cfg *config.Config, creds *providers.Credentials, logger *slog.Logger, registry *prometheus.Registry) (*app, error) {
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, registry)

	provider := providers.NewHTTPProvider(providers.ProviderConfig{
		Name:        "oci",
		UserAgent:   "tagstream/" + Version,
		Timeout:     cfg.OCI.Timeout,
		MaxAttempts: cfg.OCI.MaxAttempts,
		MaxBackoff:  cfg.OCI.MaxBackoff,
	}, creds.Signer,
		providers.WithObserver(collector),
		providers.WithLogger(logger),
	)

	e, err := endpoints(cfg.OCI, creds.Region)
	if err != nil {
		return nil, err
	}
	client := oci.NewClient(provider, e)

	algorithm, err := tagcache.ParseAlgorithm(cfg.Cache.Algorithm)
	if err != nil {
		return nil, cli.NewConfigError("cache.algorithm", "invalid algorithm", err)
	}
	cache, err := tagcache.New(tagcache.Config{
		Name:         "tags",
		Capacity:     cfg.Cache.Capacity,
		Algorithm:    algorithm,
		TTL:          cfg.Cache.TTL,
		FetchTimeout: cfg.Pipeline.LookupTimeout,
		Observer:     collector,
		Logger:       logger,
	})
	if err != nil {
		return nil, cli.NewConfigError("cache", "invalid cache configuration", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		creds:     creds,
		collector: collector,
		provider:  provider,
		registry:  resolver.NewRegistry(oci.Factories(client, logger), logger),
		cache:     cache,
	}, nil
}

// setup loads configuration and credentials and wires the app. Credential
// failures are fatal.
func setup(ctx context.Context, command string) (*app, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	creds, err := providers.LoadCredentials(credentialsConfig(cfg.OCI), logger)
	if err != nil {
		return nil, cli.NewCommandError(command, fmt.Errorf("load credentials: %w", err))
	}
	logger.Info("credentials loaded",
		"source", string(creds.Source),
		"region", creds.Region,
	)

	return newApp(cfg, creds, logger, prometheus.NewRegistry())
}

// watchCredentials returns a credential watcher when watch_credentials is
// set and the credentials came from a config file, or nil otherwise.
func (a *app) watchCredentials() *providers.CredentialWatcher {
	if !a.cfg.OCI.WatchCredentials || a.creds.ConfigPath == "" {
		return nil
	}
	reload := providers.SignerReloader(a.provider, credentialsConfig(a.cfg.OCI), a.logger)
	return providers.NewCredentialWatcher(a.creds.ConfigPath, credentialDebounce, reload, a.logger)
}
