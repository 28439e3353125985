package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 64 << 10

// signerHolder lets the signer be swapped atomically when credentials rotate.
type signerHolder struct {
	Signer
}

// HTTPProvider is a signed JSON client for the control plane.
// It provides connection pooling, retry with jittered backoff, timeout
// handling and health tracking.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// signer authenticates each attempt
	signer atomic.Pointer[signerHolder]

	observer Observer
	logger   *slog.Logger

	// health tracks the provider's health status
	health ProviderHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex
}

// Option customizes an HTTPProvider.
type Option func(*HTTPProvider)

// WithObserver reports request statistics to o.
func WithObserver(o Observer) Option {
	return func(p *HTTPProvider) { p.observer = o }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *HTTPProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTransport replaces the pooled transport, e.g. for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *HTTPProvider) { p.client.Transport = rt }
}

// NewHTTPProvider creates a control-plane client that signs every request
// with signer. A nil signer sends requests unsigned.
func NewHTTPProvider(config ProviderConfig, signer Signer, opts ...Option) *HTTPProvider {
	config = config.withDefaults()

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	p := &HTTPProvider{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: slog.Default(),
		health: ProviderHealth{
			IsHealthy:             true, // Start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("provider", config.Name)
	p.SetSigner(signer)

	return p
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetConfig returns the provider's configuration with defaults applied.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// SetSigner replaces the request signer. Requests already in flight finish
// with the signer they started with.
func (p *HTTPProvider) SetSigner(s Signer) {
	if s == nil {
		s = NoopSigner
	}
	p.signer.Store(&signerHolder{Signer: s})
}

// DoRequest performs an HTTP request with retry and timeout handling.
//
// Network errors, timeouts of a single attempt, 429 and 5xx responses are
// retried up to MaxAttempts with full-jitter exponential backoff capped at
// MaxBackoff. Every attempt of one call shares an opc-request-id so the
// control plane can correlate them. The caller must close the response body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	requestID := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	attempt := 0

	op := func() (*http.Response, error) {
		attempt++
		return p.attempt(ctx, method, url, body, headers, requestID, attempt)
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(newFullJitter(p.config.BaseBackoff, p.config.MaxBackoff)),
		backoff.WithMaxTries(uint(p.config.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			p.logger.Debug("retrying request",
				"method", method,
				"url", url,
				"attempt", attempt,
				"max_attempts", p.config.MaxAttempts,
				"backoff", wait,
				"opc_request_id", requestID,
				"error", err,
			)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !isTimeout(err) {
			err = &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctxErr}
		}
		if countsAgainstHealth(err) {
			p.updateHealth(false, err)
		}
		return nil, err
	}

	p.updateHealth(true, nil)
	return resp, nil
}

// attempt sends a single request. Errors that must not be retried are
// wrapped with backoff.Permanent.
func (p *HTTPProvider) attempt(ctx context.Context, method, url string, body []byte, headers map[string]string, requestID string, n int) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.config.UserAgent)
	req.Header.Set("opc-request-id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if err := p.signer.Load().Sign(req); err != nil {
		return nil, backoff.Permanent(&ConfigError{
			Provider: p.config.Name,
			Field:    "credentials",
			Message:  "failed to sign request",
			Cause:    err,
		})
	}

	p.logger.Debug("sending request",
		"method", method,
		"url", url,
		"attempt", n,
		"opc_request_id", requestID,
	)

	start := time.Now()
	resp, err := p.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			// Caller gave up; retrying cannot help.
			p.record("error", latency, &TimeoutError{})
			return nil, backoff.Permanent(&TimeoutError{
				Provider: p.config.Name,
				Timeout:  p.config.Timeout,
				Cause:    ctx.Err(),
			})
		}

		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			terr := &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: err}
			p.record("error", latency, terr)
			return nil, terr
		}

		perr := &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}
		p.record("error", latency, perr)
		p.logger.Warn("request failed",
			"method", method,
			"url", url,
			"attempt", n,
			"error", err,
		)
		return nil, perr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.record(strconv.Itoa(resp.StatusCode), latency, nil)
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	message := errorMessage(errorBody)
	status := strconv.Itoa(resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		aerr := &AuthError{Provider: p.config.Name, Message: message}
		p.record(status, latency, aerr)
		return nil, backoff.Permanent(aerr)

	case resp.StatusCode == http.StatusTooManyRequests:
		rerr := &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    message,
		}
		p.record(status, latency, rerr)
		p.logger.Warn("request rate limited, will retry",
			"url", url,
			"attempt", n,
			"opc_request_id", requestID,
		)
		return nil, rerr

	case resp.StatusCode >= 500:
		perr := &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: message}
		p.record(status, latency, perr)
		p.logger.Warn("request returned error status, will retry",
			"url", url,
			"status", resp.StatusCode,
			"attempt", n,
			"opc_request_id", requestID,
		)
		return nil, perr

	default:
		perr := &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: message}
		p.record(status, latency, perr)
		return nil, backoff.Permanent(perr)
	}
}

// DoJSONRequest performs a JSON request and decodes the response.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{
			Provider: p.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	p.logger.Debug("provider closed")
	return nil
}

func (p *HTTPProvider) record(status string, latency time.Duration, err error) {
	p.recordRequest(err == nil)
	if p.observer == nil {
		return
	}
	p.observer.RecordProviderRequest(p.config.Name, status, latency.Seconds())
	if err != nil {
		p.observer.RecordProviderError(p.config.Name, ErrorType(err))
	}
}

// errorMessage extracts the "code: message" pair of a control-plane error
// body, falling back to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && (e.Code != "" || e.Message != "") {
		if e.Code == "" {
			return e.Message
		}
		return e.Code + ": " + e.Message
	}
	return strings.TrimSpace(string(body))
}

func isTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}

// countsAgainstHealth reports whether err says something about the control
// plane itself rather than about the requested resource.
func countsAgainstHealth(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500 {
		return false
	}
	var ce *ConfigError
	return !errors.As(err, &ce)
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
