package oci

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"mercator-hq/tagstream/pkg/metric"
	"mercator-hq/tagstream/pkg/providers"
	"mercator-hq/tagstream/pkg/resolver"
)

// Client issues the control-plane reads the resolver variants need.
// It is safe for concurrent use.
type Client struct {
	provider  providers.Provider
	endpoints Endpoints

	// nsMu guards namespace, the tenancy's object storage namespace. It
	// never changes for a tenancy, so it is fetched once on success.
	nsMu      sync.Mutex
	namespace string
}

// NewClient creates a client sending requests through provider.
func NewClient(provider providers.Provider, endpoints Endpoints) *Client {
	return &Client{
		provider:  provider,
		endpoints: endpoints,
	}
}

// taggedResource is the tag-bearing subset of every OCI resource document.
type taggedResource struct {
	DefinedTags  map[string]map[string]any `json:"definedTags"`
	FreeformTags map[string]string         `json:"freeformTags"`
}

// GetTags reads the resource at path on service s and returns its flattened
// tags.
func (c *Client) GetTags(ctx context.Context, s Service, path string) (metric.TagSet, error) {
	u, err := c.url(s, path)
	if err != nil {
		return nil, err
	}

	var res taggedResource
	if err := c.provider.DoJSONRequest(ctx, http.MethodGet, u, nil, &res); err != nil {
		return nil, err
	}
	return resolver.MergeTags(res.DefinedTags, res.FreeformTags), nil
}

type searchDetails struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type searchResult struct {
	Items []struct {
		DisplayName string `json:"displayName"`
		Identifier  string `json:"identifier"`
	} `json:"items"`
}

// SearchDisplayName runs a structured resource search for the resource with
// the given type and identifier and returns its display name. It returns
// resolver.ErrNotFound when nothing matches.
func (c *Client) SearchDisplayName(ctx context.Context, resourceType, id string) (string, error) {
	if strings.ContainsAny(id, `'\`) {
		return "", fmt.Errorf("%w: identifier %q is not searchable", resolver.ErrNotFound, id)
	}
	u, err := c.url(ServiceResourceSearch, "/20180409/resources?limit=1")
	if err != nil {
		return "", err
	}

	req := searchDetails{
		Type:  "Structured",
		Query: fmt.Sprintf("query %s resources where identifier = '%s'", resourceType, id),
	}
	var res searchResult
	if err := c.provider.DoJSONRequest(ctx, http.MethodPost, u, req, &res); err != nil {
		return "", err
	}
	if len(res.Items) == 0 || res.Items[0].DisplayName == "" {
		return "", fmt.Errorf("%w: no %s with identifier %s", resolver.ErrNotFound, resourceType, id)
	}
	return res.Items[0].DisplayName, nil
}

// ObjectStorageNamespace returns the tenancy's object storage namespace.
func (c *Client) ObjectStorageNamespace(ctx context.Context) (string, error) {
	c.nsMu.Lock()
	ns := c.namespace
	c.nsMu.Unlock()
	if ns != "" {
		return ns, nil
	}

	u, err := c.url(ServiceObjectStorage, "/n/")
	if err != nil {
		return "", err
	}
	if err := c.provider.DoJSONRequest(ctx, http.MethodGet, u, nil, &ns); err != nil {
		return "", err
	}
	if ns == "" {
		return "", fmt.Errorf("object storage returned an empty namespace")
	}

	c.nsMu.Lock()
	c.namespace = ns
	c.nsMu.Unlock()
	return ns, nil
}

// Supports reports whether the base URL of every service in ss resolves.
func (c *Client) Supports(ss ...Service) error {
	for _, s := range ss {
		if _, err := c.endpoints.BaseURL(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) url(s Service, path string) (string, error) {
	base, err := c.endpoints.BaseURL(s)
	if err != nil {
		return "", err
	}
	return base + path, nil
}

// escapePath formats pathFmt with each argument path-escaped.
func escapePath(pathFmt string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(pathFmt, escaped...)
}
