package providers

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CredentialWatcher reloads credentials when the OCI config file changes.
// It watches the file's directory so that editors and secret managers that
// replace the file by rename are noticed too.
type CredentialWatcher struct {
	path     string
	debounce time.Duration
	reload   func() error
	logger   *slog.Logger
}

// NewCredentialWatcher creates a watcher calling reload after path changes.
// Bursts of events within debounce collapse into one reload.
func NewCredentialWatcher(path string, debounce time.Duration, reload func() error, logger *slog.Logger) *CredentialWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &CredentialWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		reload:   reload,
		logger:   logger.With("component", "providers.credential_watcher"),
	}
}

// Run watches until ctx is done. Reload failures are logged and the
// previous credentials stay in use.
func (w *CredentialWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("credential watcher started", "path", w.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("credential watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path || event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			w.logger.Debug("credential file event", "op", event.Op.String())

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := w.reload(); err != nil {
					w.logger.Error("credential reload failed, keeping previous credentials", "error", err)
					return
				}
				w.logger.Info("credentials reloaded")
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("credential watcher error", "error", err)
		}
	}
}

// SignerReloader returns a reload function that loads credentials with cfg
// and installs the new signer on p.
func SignerReloader(p *HTTPProvider, cfg CredentialsConfig, logger *slog.Logger) func() error {
	return func() error {
		creds, err := LoadCredentials(cfg, logger)
		if err != nil {
			return err
		}
		p.SetSigner(creds.Signer)
		return nil
	}
}
