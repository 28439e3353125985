package resolver

import (
	"context"

	"mercator-hq/tagstream/pkg/metric"
)

// DefaultIdentifierDimension is the dimension holding the resource
// identifier unless a namespace overrides it.
const DefaultIdentifierDimension = "resourceId"

// ResourceIdentifier names the resource a metric was measured on.
type ResourceIdentifier struct {
	// ID is the provider's resource identifier.
	ID string

	// Identity holds the dimensions that determine the resource, including
	// the identifier itself. It keys the tag cache.
	Identity map[string]string
}

// ResourceResolver looks up the tags of the resource behind a metric.
// Implementations must be safe for concurrent use.
type ResourceResolver interface {
	// ResolveIdentifier picks the resource identifier out of the metric
	// dimensions. It returns ErrNotFound when the dimensions do not carry one.
	ResolveIdentifier(namespace string, dimensions map[string]string) (ResourceIdentifier, error)

	// FetchTags retrieves the resource tags from the provider. An empty
	// TagSet with a nil error means the resource kind is not taggable.
	FetchTags(ctx context.Context, namespace string, id ResourceIdentifier) (metric.TagSet, error)
}

// Func adapts a pair of plain functions to ResourceResolver.
type Func struct {
	Identify func(namespace string, dimensions map[string]string) (ResourceIdentifier, error)
	Fetch    func(ctx context.Context, namespace string, id ResourceIdentifier) (metric.TagSet, error)
}

// ResolveIdentifier implements ResourceResolver. A nil Identify reads
// DefaultIdentifierDimension.
func (f Func) ResolveIdentifier(namespace string, dimensions map[string]string) (ResourceIdentifier, error) {
	if f.Identify == nil {
		return IdentifierFrom(dimensions, DefaultIdentifierDimension)
	}
	return f.Identify(namespace, dimensions)
}

// FetchTags implements ResourceResolver.
func (f Func) FetchTags(ctx context.Context, namespace string, id ResourceIdentifier) (metric.TagSet, error) {
	if f.Fetch == nil {
		return metric.TagSet{}, nil
	}
	return f.Fetch(ctx, namespace, id)
}

// IdentifierFrom builds an identifier from the named dimension plus any extra
// dimensions the lookup needs. It returns ErrNotFound if any of them is
// missing or empty.
func IdentifierFrom(dimensions map[string]string, idDimension string, extra ...string) (ResourceIdentifier, error) {
	id := dimensions[idDimension]
	if id == "" {
		return ResourceIdentifier{}, ErrNotFound
	}

	identity := make(map[string]string, 1+len(extra))
	identity[idDimension] = id
	for _, name := range extra {
		v := dimensions[name]
		if v == "" {
			return ResourceIdentifier{}, ErrNotFound
		}
		identity[name] = v
	}

	return ResourceIdentifier{ID: id, Identity: identity}, nil
}
