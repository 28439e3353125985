package oci

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"mercator-hq/tagstream/pkg/metric"
	"mercator-hq/tagstream/pkg/resolver"
)

// Resolver resolves the resources of one OCI metric namespace.
type Resolver struct {
	namespace string
	variant   variant
	client    *Client
	logger    *slog.Logger
}

// NewResolver creates the resolver for namespace. It fails when the namespace
// is unknown or one of the services it reads has no usable endpoint.
func NewResolver(namespace string, client *Client, logger *slog.Logger) (*Resolver, error) {
	v, ok := variants[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", resolver.ErrUnsupportedNamespace, namespace)
	}
	if err := client.Supports(v.services()...); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		namespace: namespace,
		variant:   v,
		client:    client,
		logger:    logger.With("component", "resolver.oci", "namespace", namespace),
	}, nil
}

// ResolveIdentifier implements resolver.ResourceResolver.
func (r *Resolver) ResolveIdentifier(_ string, dimensions map[string]string) (resolver.ResourceIdentifier, error) {
	return resolver.IdentifierFrom(dimensions, r.variant.identifierDimension(), r.variant.extra...)
}

// FetchTags implements resolver.ResourceResolver. The OCID's resource type
// segment selects the API call; an OCID of a type the namespace does not
// know yields an empty TagSet.
func (r *Resolver) FetchTags(ctx context.Context, namespace string, id resolver.ResourceIdentifier) (metric.TagSet, error) {
	segments := strings.Split(id.ID, ".")
	for _, k := range r.variant.kinds {
		if !slices.Contains(segments, k.segment) {
			continue
		}
		tags, err := k.fetch(ctx, r.client, id)
		if err != nil {
			return nil, &resolver.ResolverError{Namespace: namespace, ResourceID: id.ID, Cause: err}
		}
		return tags, nil
	}

	r.logger.Debug("no resource kind matches identifier", "resource_id", id.ID)
	return metric.TagSet{}, nil
}

// Namespaces returns every OCI metric namespace with a resolver, sorted.
func Namespaces() []string {
	out := make([]string, 0, len(variants))
	for ns := range variants {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Factories returns a registry table covering every OCI namespace. All
// resolvers share client.
func Factories(client *Client, logger *slog.Logger) map[string]resolver.Factory {
	out := make(map[string]resolver.Factory, len(variants))
	for ns := range variants {
		out[ns] = func() (resolver.ResourceResolver, error) {
			return NewResolver(ns, client, logger)
		}
	}
	return out
}
