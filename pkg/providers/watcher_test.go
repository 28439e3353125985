package providers

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// TestCredentialWatcher_Reload tests that rewriting the watched file
// triggers a reload and that other files in the directory do not.
func TestCredentialWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	other := filepath.Join(dir, "other")
	if err := os.WriteFile(path, []byte("[DEFAULT]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int32
	w := NewCredentialWatcher(path, 10*time.Millisecond, func() error {
		reloads.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is installed asynchronously; keep touching unrelated files
	// until it is certainly active, then check none of them reloaded.
	for i := 0; i < 20; i++ {
		if err := os.WriteFile(other, []byte{byte(i)}, 0o600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if got := reloads.Load(); got != 0 {
		t.Fatalf("reloads after unrelated writes = %d, want 0", got)
	}

	deadline := time.Now().Add(5 * time.Second)
	for reloads.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no reload after rewriting the watched file")
		}
		if err := os.WriteFile(path, []byte("[DEFAULT]\nregion=us-1\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

// TestCredentialWatcher_MissingDirectory tests that an unwatchable path is
// reported.
func TestCredentialWatcher_MissingDirectory(t *testing.T) {
	w := NewCredentialWatcher(filepath.Join(t.TempDir(), "nope", "config"), 0, func() error { return nil }, nil)
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() error = nil, want error for missing directory")
	}
}

// TestSignerReloader tests reloading a signer from a config file.
func TestSignerReloader(t *testing.T) {
	path, _ := writeOCIConfig(t, t.TempDir(), "us-ashburn-1")
	p := NewHTTPProvider(ProviderConfig{Name: "oci-test"}, NoopSigner)
	defer p.Close()

	if err := SignerReloader(p, CredentialsConfig{Mode: AuthConfigFile, ConfigPath: path}, nil)(); err != nil {
		t.Errorf("reload error = %v", err)
	}

	missing := filepath.Join(t.TempDir(), "config")
	if err := SignerReloader(p, CredentialsConfig{Mode: AuthConfigFile, ConfigPath: missing}, nil)(); err == nil {
		t.Error("reload error = nil, want error for missing config")
	}
}
