package resolver

import (
	"fmt"
	"sort"

	"mercator-hq/tagstream/pkg/metric"
)

// TagDelimiter joins the levels of nested tag keys.
const TagDelimiter = "."

// MergeTags combines a resource's defined tags (tag namespace → key → value)
// and freeform tags into one flat TagSet. A freeform tag replaces a defined
// tag namespace of the same name; nested keys are joined with TagDelimiter.
func MergeTags(defined map[string]map[string]any, freeform map[string]string) metric.TagSet {
	merged := make(map[string]any, len(defined)+len(freeform))
	for ns, tags := range defined {
		merged[ns] = tags
	}
	for k, v := range freeform {
		merged[k] = v
	}
	return Flatten(merged)
}

// Flatten turns a nested map into dotted keys. Keys are visited in sorted
// order so that colliding paths resolve the same way on every run.
func Flatten(m map[string]any) metric.TagSet {
	out := make(metric.TagSet)
	flattenInto(out, "", m)
	return out
}

func flattenInto(out metric.TagSet, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + TagDelimiter + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			flattenInto(out, path, v)
		case map[string]string:
			nested := make(map[string]any, len(v))
			for nk, nv := range v {
				nested[nk] = nv
			}
			flattenInto(out, path, nested)
		case nil:
			out[path] = ""
		case string:
			out[path] = v
		default:
			out[path] = fmt.Sprint(v)
		}
	}
}
