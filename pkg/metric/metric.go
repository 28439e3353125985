// Package metric defines the records that flow through the enrichment
// pipeline: decoded metrics, resource tag sets and enriched metrics.
package metric

import (
	"maps"
	"sort"
	"time"
)

// Datapoint is a single observation of a metric.
type Datapoint struct {
	// Timestamp is the observation time, already normalized from the input
	// granularity.
	Timestamp time.Time

	// Fields holds every non-timestamp value of the datapoint. Values are
	// float64, int64, uint64, bool or string.
	Fields map[string]any
}

// RawMetric is a decoded input record. It is not modified after decoding.
type RawMetric struct {
	// Name is the output measurement name.
	Name string

	// Namespace selects the resource resolver (e.g. "oci_compute").
	Namespace string

	// Dimensions identify the resource instance the metric was measured on.
	Dimensions map[string]string

	// Datapoints are emitted as one output record each.
	Datapoints []Datapoint

	// Metadata holds namespace-level attributes (region, unit, ...).
	Metadata map[string]string
}

// TagSet is a flattened set of resource tags.
type TagSet map[string]string

// Keys returns the tag keys in ascending order.
func (t TagSet) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the tag set. A nil tag set clones to an empty one.
func (t TagSet) Clone() TagSet {
	out := make(TagSet, len(t))
	maps.Copy(out, t)
	return out
}

// Enriched is a RawMetric together with the tags resolved for its resource.
type Enriched struct {
	RawMetric
	Tags TagSet
}

// MergedTags returns the union of metadata, dimensions and resolved tags.
// On key collisions dimensions override metadata and resolved tags override
// both.
func (e Enriched) MergedTags() map[string]string {
	out := make(map[string]string, len(e.Metadata)+len(e.Dimensions)+len(e.Tags))
	maps.Copy(out, e.Metadata)
	maps.Copy(out, e.Dimensions)
	maps.Copy(out, e.Tags)
	return out
}
