package providers

import (
	"time"
)

// Default transport settings for the control-plane client.
const (
	DefaultTimeout     = 20 * time.Second
	DefaultMaxAttempts = 3
	DefaultMaxBackoff  = 3 * time.Second
	DefaultBaseBackoff = 250 * time.Millisecond
)

// ProviderHealth tracks the health status of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last completed request
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failed requests
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this provider
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// ProviderConfig contains the transport settings of a control-plane client.
type ProviderConfig struct {
	// Name identifies the client in logs, metrics and errors (e.g. "oci")
	Name string

	// UserAgent is sent with every request
	UserAgent string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// MaxAttempts is the total number of attempts per request, including the first
	MaxAttempts int

	// BaseBackoff is the backoff cap for the first retry; it doubles per attempt
	BaseBackoff time.Duration

	// MaxBackoff caps the wait between two attempts
	MaxBackoff time.Duration

	// UnhealthyAfter is the number of consecutive failed requests after which
	// the provider reports itself unhealthy (default 3)
	UnhealthyAfter int

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// withDefaults fills zero fields.
func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.Name == "" {
		c.Name = "oci"
	}
	if c.UserAgent == "" {
		c.UserAgent = "tagstream"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.UnhealthyAfter <= 0 {
		c.UnhealthyAfter = 3
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 20
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	return c
}
