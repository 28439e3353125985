package providers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// writeOCIConfig writes a config file and an RSA key into dir.
func writeOCIConfig(t *testing.T, dir, region string) (string, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	keyPath := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := fmt.Sprintf(`[DEFAULT]
user=ocid1.user.oc1..aaaa
fingerprint=20:3b:97:13:55:1c:5b:0d:d3:37:d8:50:4e:c5:3a:34
tenancy=ocid1.tenancy.oc1..bbbb
region=%s
key_file=%s
`, region, keyPath)
	cfgPath := filepath.Join(dir, "config")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath, string(keyPEM)
}

func stubInstancePrincipal(t *testing.T, fn func() (common.ConfigurationProvider, error)) {
	t.Helper()
	orig := instancePrincipalProvider
	instancePrincipalProvider = fn
	t.Cleanup(func() { instancePrincipalProvider = orig })
}

func TestLoadCredentials_ConfigFile(t *testing.T) {
	path, _ := writeOCIConfig(t, t.TempDir(), "us-ashburn-1")
	stubInstancePrincipal(t, func() (common.ConfigurationProvider, error) {
		t.Error("instance principal consulted although config file is valid")
		return nil, errors.New("unexpected")
	})

	creds, err := LoadCredentials(CredentialsConfig{ConfigPath: path}, nil)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.Source != AuthConfigFile {
		t.Errorf("Source = %q, want %q", creds.Source, AuthConfigFile)
	}
	if creds.Region != "us-ashburn-1" {
		t.Errorf("Region = %q, want us-ashburn-1", creds.Region)
	}
	if creds.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", creds.ConfigPath, path)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://iaas.us-ashburn-1.oraclecloud.com/20160918/instances/x", nil)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	if err := creds.Signer.Sign(req); err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if req.Header.Get("Authorization") == "" {
		t.Error("signed request has no Authorization header")
	}
}

func TestLoadCredentials_RegionOverride(t *testing.T) {
	path, _ := writeOCIConfig(t, t.TempDir(), "us-ashburn-1")

	creds, err := LoadCredentials(CredentialsConfig{Mode: AuthConfigFile, ConfigPath: path, Region: "eu-frankfurt-1"}, nil)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.Region != "eu-frankfurt-1" {
		t.Errorf("Region = %q, want eu-frankfurt-1", creds.Region)
	}
}

func TestLoadCredentials_FallbackToInstancePrincipal(t *testing.T) {
	_, keyPEM := writeOCIConfig(t, t.TempDir(), "unused")
	stubInstancePrincipal(t, func() (common.ConfigurationProvider, error) {
		return common.NewRawConfigurationProvider("ocid1.tenancy.oc1..t", "ocid1.user.oc1..u",
			"ap-tokyo-1", "20:3b:97:13:55:1c:5b:0d:d3:37:d8:50:4e:c5:3a:34", keyPEM, nil), nil
	})

	creds, err := LoadCredentials(CredentialsConfig{ConfigPath: filepath.Join(t.TempDir(), "missing")}, nil)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.Source != AuthInstancePrincipal || creds.Region != "ap-tokyo-1" {
		t.Errorf("got source %q region %q", creds.Source, creds.Region)
	}
}

func TestLoadCredentials_Errors(t *testing.T) {
	stubInstancePrincipal(t, func() (common.ConfigurationProvider, error) {
		return nil, errors.New("metadata service unreachable")
	})
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name  string
		cfg   CredentialsConfig
		field string
	}{
		{name: "auto with nothing available", cfg: CredentialsConfig{ConfigPath: missing}, field: "auth"},
		{name: "config file missing", cfg: CredentialsConfig{Mode: AuthConfigFile, ConfigPath: missing}, field: "config_path"},
		{name: "instance principal unavailable", cfg: CredentialsConfig{Mode: AuthInstancePrincipal}, field: "auth"},
		{name: "unknown mode", cfg: CredentialsConfig{Mode: "token"}, field: "auth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCredentials(tt.cfg, nil)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestCredentialWatcher_DebouncedReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte("[DEFAULT]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	w := NewCredentialWatcher(path, 50*time.Millisecond, func() error {
		reloads.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// A burst of writes collapses into a single reload.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("[DEFAULT]\n# %d\n", i)), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if n := reloads.Load(); n < 1 || n > 2 {
		t.Errorf("reloads = %d, want one debounced reload", n)
	}
}
