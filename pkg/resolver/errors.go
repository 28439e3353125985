package resolver

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a metric carries no identifier the resolver can
// look up. The metric is forwarded with an empty tag set.
var ErrNotFound = errors.New("resource identifier not found")

// ErrUnsupportedNamespace reports that no resolver is registered for a
// namespace. The metric is forwarded with an empty tag set.
var ErrUnsupportedNamespace = errors.New("unsupported namespace")

// ResolverError represents a failed tag lookup. The metric that triggered it
// is dropped.
type ResolverError struct {
	// Namespace is the metric namespace being resolved
	Namespace string

	// ResourceID is the identifier that was looked up (empty if not yet known)
	ResourceID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ResolverError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("resolve %s %s: %v", e.Namespace, e.ResourceID, e.Cause)
	}
	return fmt.Sprintf("resolve %s: %v", e.Namespace, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ResolverError) Unwrap() error {
	return e.Cause
}
