package tagcache

import (
	"container/heap"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"mercator-hq/tagstream/pkg/metric"
)

// Algorithm names an eviction policy.
type Algorithm string

const (
	// AlgorithmLFU evicts the least frequently used entry, oldest first on ties.
	AlgorithmLFU Algorithm = "lfu"
	// AlgorithmLRU evicts the least recently used entry.
	AlgorithmLRU Algorithm = "lru"
	// AlgorithmLRUTTL is AlgorithmLRU with a per-entry time to live.
	AlgorithmLRUTTL Algorithm = "lru-ttl"
)

// ParseAlgorithm validates an algorithm name. The empty string means LFU.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(s)); a {
	case "":
		return AlgorithmLFU, nil
	case AlgorithmLFU, AlgorithmLRU, AlgorithmLRUTTL:
		return a, nil
	default:
		return "", fmt.Errorf("unknown cache algorithm %q (supported: lfu, lru, lru-ttl)", s)
	}
}

// Policy stores cache entries and decides which one to evict when full.
//
// The Cache serializes every call under its own mutex, so implementations
// need not be safe for concurrent use.
type Policy interface {
	// Get returns the entry for key and counts it as a reference.
	Get(key ResourceKey) (metric.TagSet, bool)

	// Add inserts or replaces the entry for key. It reports whether another
	// entry was evicted to make room.
	Add(key ResourceKey, value metric.TagSet) (evicted bool)

	// Len returns the number of stored entries.
	Len() int

	// Purge removes every entry.
	Purge()
}

// NewPolicy creates the policy for an algorithm. ttl is only used by
// AlgorithmLRUTTL.
func NewPolicy(algorithm Algorithm, capacity int, ttl time.Duration) (Policy, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}

	switch algorithm {
	case "", AlgorithmLFU:
		return newLFU(capacity), nil
	case AlgorithmLRU:
		c, err := lru.New[ResourceKey, metric.TagSet](capacity)
		if err != nil {
			return nil, fmt.Errorf("create lru cache: %w", err)
		}
		return &lruPolicy{c: c}, nil
	case AlgorithmLRUTTL:
		if ttl <= 0 {
			return nil, fmt.Errorf("cache algorithm %q requires a positive ttl", algorithm)
		}
		return &ttlPolicy{c: expirable.NewLRU[ResourceKey, metric.TagSet](capacity, nil, ttl)}, nil
	default:
		return nil, fmt.Errorf("unknown cache algorithm %q", algorithm)
	}
}

// lfuEntry is one cached value with its reference count.
type lfuEntry struct {
	key   ResourceKey
	value metric.TagSet
	freq  uint64
	seq   uint64 // insertion order, breaks frequency ties
	index int    // position in the heap
}

// lfuHeap is a min-heap on (freq, seq).
type lfuHeap []*lfuEntry

func (h lfuHeap) Len() int { return len(h) }

func (h lfuHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}

func (h lfuHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *lfuHeap) Push(x any) {
	e := x.(*lfuEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *lfuHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// lfuPolicy is the default policy. A new entry starts with one reference and
// every hit adds one; the entry with the fewest references is evicted, the
// oldest insertion first when counts are equal.
type lfuPolicy struct {
	capacity int
	items    map[ResourceKey]*lfuEntry
	heap     lfuHeap
	seq      uint64
}

func newLFU(capacity int) *lfuPolicy {
	return &lfuPolicy{
		capacity: capacity,
		items:    make(map[ResourceKey]*lfuEntry, capacity),
		heap:     make(lfuHeap, 0, capacity),
	}
}

func (p *lfuPolicy) Get(key ResourceKey) (metric.TagSet, bool) {
	e, ok := p.items[key]
	if !ok {
		return nil, false
	}
	e.freq++
	heap.Fix(&p.heap, e.index)
	return e.value, true
}

func (p *lfuPolicy) Add(key ResourceKey, value metric.TagSet) bool {
	if e, ok := p.items[key]; ok {
		e.value = value
		e.freq++
		heap.Fix(&p.heap, e.index)
		return false
	}

	evicted := false
	if len(p.items) >= p.capacity {
		victim := heap.Pop(&p.heap).(*lfuEntry)
		delete(p.items, victim.key)
		evicted = true
	}

	p.seq++
	e := &lfuEntry{key: key, value: value, freq: 1, seq: p.seq}
	heap.Push(&p.heap, e)
	p.items[key] = e
	return evicted
}

func (p *lfuPolicy) Len() int { return len(p.items) }

func (p *lfuPolicy) Purge() {
	clear(p.items)
	clear(p.heap)
	p.heap = p.heap[:0]
}

type lruPolicy struct {
	c *lru.Cache[ResourceKey, metric.TagSet]
}

func (p *lruPolicy) Get(key ResourceKey) (metric.TagSet, bool) { return p.c.Get(key) }

func (p *lruPolicy) Add(key ResourceKey, value metric.TagSet) bool { return p.c.Add(key, value) }

func (p *lruPolicy) Len() int { return p.c.Len() }

func (p *lruPolicy) Purge() { p.c.Purge() }

type ttlPolicy struct {
	c *expirable.LRU[ResourceKey, metric.TagSet]
}

func (p *ttlPolicy) Get(key ResourceKey) (metric.TagSet, bool) { return p.c.Get(key) }

func (p *ttlPolicy) Add(key ResourceKey, value metric.TagSet) bool { return p.c.Add(key, value) }

func (p *ttlPolicy) Len() int { return p.c.Len() }

func (p *ttlPolicy) Purge() { p.c.Purge() }
