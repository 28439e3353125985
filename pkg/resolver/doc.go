// Package resolver maps metric namespaces to the code that finds the cloud
// resource behind a metric and fetches its tags.
//
// A ResourceResolver has two steps. ResolveIdentifier is local and cheap: it
// picks the resource identifier out of the metric dimensions. FetchTags is
// remote and may take several control-plane calls. The Registry holds one
// resolver per namespace and builds it the first time the namespace is seen,
// so credentials and clients are only set up for namespaces that actually
// appear in the stream.
//
// Outcomes map onto the enrichment policy as follows:
//
//   - ErrUnsupportedNamespace or ErrNotFound: forward with no resource tags.
//   - An empty TagSet with a nil error: forward with no resource tags.
//   - Any other error (wrapped in a ResolverError by the caller): drop.
package resolver
