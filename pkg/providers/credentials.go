package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/common/auth"
)

// AuthMode selects how control-plane credentials are obtained.
type AuthMode string

const (
	// AuthAuto tries the config file first and falls back to instance principals.
	AuthAuto AuthMode = "auto"
	// AuthConfigFile reads an OCI CLI style config file.
	AuthConfigFile AuthMode = "config_file"
	// AuthInstancePrincipal uses the identity of the compute instance.
	AuthInstancePrincipal AuthMode = "instance_principal"
)

// DefaultProfile is the config file profile used when none is configured.
const DefaultProfile = "DEFAULT"

// CredentialsConfig selects and locates credentials.
type CredentialsConfig struct {
	// Mode selects the credential source (default AuthAuto)
	Mode AuthMode

	// ConfigPath is the OCI config file (default ~/.oci/config)
	ConfigPath string

	// Profile is the section of the config file to use (default DEFAULT)
	Profile string

	// Region overrides the region reported by the credentials
	Region string
}

// Credentials are loaded control-plane credentials.
type Credentials struct {
	// Source is the mode that produced the credentials
	Source AuthMode

	// Region is the home region requests are sent to
	Region string

	// Signer signs requests with the loaded key
	Signer Signer

	// ConfigPath is the config file in use (empty for instance principals)
	ConfigPath string
}

// Loader functions, replaceable in tests.
var (
	configFileProvider = func(path, profile string) (common.ConfigurationProvider, error) {
		return common.ConfigurationProviderFromFileWithProfile(path, profile, "")
	}
	instancePrincipalProvider = auth.InstancePrincipalConfigurationProvider
)

// DefaultConfigPath returns ~/.oci/config.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".oci", "config")
	}
	return filepath.Join(home, ".oci", "config")
}

// LoadCredentials obtains credentials according to cfg. With AuthAuto the
// config file is tried first and instance principals second; if both fail
// the returned *ConfigError carries both causes.
func LoadCredentials(cfg CredentialsConfig, logger *slog.Logger) (*Credentials, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = AuthAuto
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath()
	}
	cfg.ConfigPath = expandHome(cfg.ConfigPath)

	switch cfg.Mode {
	case AuthConfigFile:
		return fromConfigFile(cfg)
	case AuthInstancePrincipal:
		return fromInstancePrincipal(cfg)
	case AuthAuto:
		creds, fileErr := fromConfigFile(cfg)
		if fileErr == nil {
			return creds, nil
		}
		logger.Info("config file credentials unavailable, trying instance principal",
			"config_path", cfg.ConfigPath,
			"profile", cfg.Profile,
			"error", fileErr,
		)
		creds, ipErr := fromInstancePrincipal(cfg)
		if ipErr == nil {
			return creds, nil
		}
		return nil, &ConfigError{
			Provider: "oci",
			Field:    "auth",
			Message:  "no usable credentials",
			Cause:    errors.Join(fileErr, ipErr),
		}
	default:
		return nil, &ConfigError{
			Provider: "oci",
			Field:    "auth",
			Message:  fmt.Sprintf("unknown auth mode %q (supported: auto, config_file, instance_principal)", cfg.Mode),
		}
	}
}

func fromConfigFile(cfg CredentialsConfig) (*Credentials, error) {
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return nil, &ConfigError{Provider: "oci", Field: "config_path", Message: "cannot read config file", Cause: err}
	}

	provider, err := configFileProvider(cfg.ConfigPath, cfg.Profile)
	if err != nil {
		return nil, &ConfigError{Provider: "oci", Field: "config_path", Message: "cannot load config file", Cause: err}
	}
	return newCredentials(AuthConfigFile, provider, cfg, cfg.ConfigPath)
}

func fromInstancePrincipal(cfg CredentialsConfig) (*Credentials, error) {
	provider, err := instancePrincipalProvider()
	if err != nil {
		return nil, &ConfigError{Provider: "oci", Field: "auth", Message: "instance principal unavailable", Cause: err}
	}
	return newCredentials(AuthInstancePrincipal, provider, cfg, "")
}

func newCredentials(source AuthMode, provider common.ConfigurationProvider, cfg CredentialsConfig, path string) (*Credentials, error) {
	if ok, err := common.IsConfigurationProviderValid(provider); !ok {
		return nil, &ConfigError{Provider: "oci", Field: "auth", Message: fmt.Sprintf("invalid %s credentials", source), Cause: err}
	}

	region := cfg.Region
	if region == "" {
		r, err := provider.Region()
		if err != nil {
			return nil, &ConfigError{Provider: "oci", Field: "region", Message: "credentials carry no region", Cause: err}
		}
		region = r
	}

	return &Credentials{
		Source:     source,
		Region:     region,
		Signer:     common.DefaultRequestSigner(provider),
		ConfigPath: path,
	}, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
