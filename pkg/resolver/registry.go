package resolver

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Factory creates the resolver for a namespace. It is called at most once,
// the first time a metric of that namespace needs enrichment.
type Factory func() (ResourceResolver, error)

// entry holds one namespace's lazily constructed resolver.
type entry struct {
	factory Factory

	once     sync.Once
	resolver ResourceResolver
	err      error
}

// Registry maps metric namespaces to resolvers. The namespace table is fixed
// at construction; each resolver is built on first use behind a per-namespace
// init-once guard, so Lookup is safe for concurrent use without a registry
// lock.
type Registry struct {
	entries map[string]*entry
	logger  *slog.Logger
}

// NewRegistry creates a registry from a namespace → factory table.
func NewRegistry(factories map[string]Factory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	entries := make(map[string]*entry, len(factories))
	for ns, f := range factories {
		if f == nil {
			continue
		}
		entries[ns] = &entry{factory: f}
	}

	return &Registry{
		entries: entries,
		logger:  logger.With("component", "resolver.registry"),
	}
}

// Lookup returns the resolver for namespace, constructing it on first use.
// It returns ErrUnsupportedNamespace when the namespace is not registered.
// A factory failure is remembered and returned to every later caller.
func (r *Registry) Lookup(namespace string) (ResourceResolver, error) {
	e, ok := r.entries[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNamespace, namespace)
	}

	e.once.Do(func() {
		e.resolver, e.err = e.factory()
		if e.err != nil {
			r.logger.Error("failed to create resolver", "namespace", namespace, "error", e.err)
			return
		}
		r.logger.Debug("resolver created", "namespace", namespace)
	})
	if e.err != nil {
		return nil, fmt.Errorf("create resolver for %q: %w", namespace, e.err)
	}
	return e.resolver, nil
}

// Supports reports whether a resolver is registered for namespace.
func (r *Registry) Supports(namespace string) bool {
	_, ok := r.entries[namespace]
	return ok
}

// Namespaces returns the registered namespaces in sorted order.
func (r *Registry) Namespaces() []string {
	names := make([]string, 0, len(r.entries))
	for ns := range r.entries {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}
