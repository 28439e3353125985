package providers

import (
	"context"
	"net/http"
)

// Provider is a client for a remote metadata control plane. Resolvers use it
// to issue authenticated JSON requests without knowing how requests are
// signed or retried.
//
// All methods are safe for concurrent use.
type Provider interface {
	// DoJSONRequest sends a request with an optional JSON body and decodes a
	// JSON response into respBody. Transient failures are retried.
	DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any) error

	// HealthCheck returns nil while the provider is healthy, or the error
	// that made it unhealthy.
	HealthCheck(ctx context.Context) error

	// GetName returns the provider's configured name.
	GetName() string

	// IsHealthy returns the current health status of the provider.
	IsHealthy() bool

	// GetHealth returns detailed health information.
	GetHealth() ProviderHealth

	// Close releases idle connections.
	Close() error
}

// Signer authenticates an outgoing request in place.
// common.HTTPRequestSigner from the OCI SDK satisfies it.
type Signer interface {
	Sign(r *http.Request) error
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(r *http.Request) error

// Sign implements Signer.
func (f SignerFunc) Sign(r *http.Request) error { return f(r) }

// NoopSigner leaves requests unsigned. It is used against local test servers.
var NoopSigner Signer = SignerFunc(func(*http.Request) error { return nil })

// Observer receives per-request statistics. *metrics.Collector implements it.
type Observer interface {
	RecordProviderRequest(provider, status string, latencySeconds float64)
	RecordProviderError(provider, errorType string)
	UpdateProviderHealth(provider string, healthy bool)
}
