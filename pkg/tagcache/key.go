package tagcache

import (
	"encoding/hex"
	"sort"

	"github.com/zeebo/blake3"
)

// ResourceKey identifies one cloud resource within the cache. It is derived
// from the metric namespace and the dimensions that determine the resource's
// identity, so the same resource reported with different dimension order maps
// to the same key.
//
// ResourceKey is comparable and can be used as a map key.
type ResourceKey struct {
	Namespace   string
	Fingerprint [32]byte
}

// NewResourceKey builds the key for a namespace and its identity dimensions.
// Dimension order does not affect the result.
func NewResourceKey(namespace string, identity map[string]string) ResourceKey {
	keys := make([]string, 0, len(identity))
	for k := range identity {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// NUL separators: line protocol cannot carry NUL in names or values.
	buf := make([]byte, 0, 64*(len(keys)+1))
	buf = append(buf, namespace...)
	buf = append(buf, 0)
	for _, k := range keys {
		buf = append(buf, k...)
		buf = append(buf, 0)
		buf = append(buf, identity[k]...)
		buf = append(buf, 0)
	}

	return ResourceKey{Namespace: namespace, Fingerprint: blake3.Sum256(buf)}
}

// String returns "namespace/<hex fingerprint>".
func (k ResourceKey) String() string {
	return k.Namespace + "/" + hex.EncodeToString(k.Fingerprint[:])
}
