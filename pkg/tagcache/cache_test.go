package tagcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/tagstream/pkg/metric"
)

func key(id string) ResourceKey {
	return NewResourceKey("oci_compute", map[string]string{"resourceId": id})
}

func constFetch(calls *atomic.Int32, tags metric.TagSet) FetchFunc {
	return func(context.Context) (metric.TagSet, error) {
		calls.Add(1)
		return tags, nil
	}
}

func newTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// TestNewResourceKey tests key derivation from namespace and identity dimensions.
func TestNewResourceKey(t *testing.T) {
	base := NewResourceKey("oci_compute", map[string]string{"resourceId": "ocid1.instance.oc1..a", "region": "us-1"})

	tests := []struct {
		name     string
		other    ResourceKey
		wantSame bool
	}{
		{
			name:     "same dimensions built separately",
			other:    NewResourceKey("oci_compute", map[string]string{"region": "us-1", "resourceId": "ocid1.instance.oc1..a"}),
			wantSame: true,
		},
		{
			name:     "different namespace",
			other:    NewResourceKey("oci_vcn", map[string]string{"resourceId": "ocid1.instance.oc1..a", "region": "us-1"}),
			wantSame: false,
		},
		{
			name:     "different value",
			other:    NewResourceKey("oci_compute", map[string]string{"resourceId": "ocid1.instance.oc1..b", "region": "us-1"}),
			wantSame: false,
		},
		{
			name:     "value moved between keys",
			other:    NewResourceKey("oci_compute", map[string]string{"resourceId": "ocid1.instance.oc1..a" + "region", "": "us-1"}),
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base == tt.other; got != tt.wantSame {
				t.Errorf("keys equal = %v, want %v (%s vs %s)", got, tt.wantSame, base, tt.other)
			}
		})
	}

	if got := base.String(); len(got) != len("oci_compute/")+64 {
		t.Errorf("String() = %q, want namespace and 64 hex digits", got)
	}
}

// TestCache_SequentialFetchOnce tests that a second lookup is served from the cache.
func TestCache_SequentialFetchOnce(t *testing.T) {
	c := newTestCache(t, Config{})
	var calls atomic.Int32
	want := metric.TagSet{"Environment": "prod"}

	for i := 0; i < 2; i++ {
		got, err := c.GetOrFetch(context.Background(), key("a"), constFetch(&calls, want))
		if err != nil {
			t.Fatalf("GetOrFetch() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetOrFetch() mismatch (-want +got):\n%s", diff)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

// TestCache_ConcurrentSingleFlight tests that concurrent misses share one fetch.
func TestCache_ConcurrentSingleFlight(t *testing.T) {
	c := newTestCache(t, Config{})

	var (
		calls       atomic.Int32
		inflight    atomic.Int32
		maxInflight atomic.Int32
		release     = make(chan struct{})
	)
	fetch := func(context.Context) (metric.TagSet, error) {
		calls.Add(1)
		n := inflight.Add(1)
		for {
			m := maxInflight.Load()
			if n <= m || maxInflight.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		inflight.Add(-1)
		return metric.TagSet{"team": "core"}, nil
	}

	const workers = 50
	var wg sync.WaitGroup
	results := make([]metric.TagSet, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), key("shared"), fetch)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	if n := maxInflight.Load(); n != 1 {
		t.Errorf("max in-flight fetches = %d, want 1", n)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d: error = %v", i, errs[i])
		}
		if results[i]["team"] != "core" {
			t.Errorf("caller %d: tags = %v", i, results[i])
		}
	}
}

// TestCache_FailureNotCached tests that a failed fetch is retried by the next caller.
func TestCache_FailureNotCached(t *testing.T) {
	c := newTestCache(t, Config{})
	errBoom := errors.New("boom")

	var calls atomic.Int32
	failing := func(context.Context) (metric.TagSet, error) {
		calls.Add(1)
		return nil, errBoom
	}

	if _, err := c.GetOrFetch(context.Background(), key("a"), failing); !errors.Is(err, errBoom) {
		t.Fatalf("GetOrFetch() error = %v, want %v", err, errBoom)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after failure, want 0", c.Len())
	}

	got, err := c.GetOrFetch(context.Background(), key("a"), constFetch(&calls, metric.TagSet{"k": "v"}))
	if err != nil {
		t.Fatalf("GetOrFetch() retry error = %v", err)
	}
	if got["k"] != "v" {
		t.Errorf("GetOrFetch() = %v", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

// TestCache_FailureSharedByWaiters tests that callers joining a failing
// flight all get its error without fetching again, and that the key is
// fetched afresh afterwards.
func TestCache_FailureSharedByWaiters(t *testing.T) {
	c := newTestCache(t, Config{})
	errBoom := errors.New("boom")

	var calls atomic.Int32
	release := make(chan struct{})
	failing := func(context.Context) (metric.TagSet, error) {
		calls.Add(1)
		<-release
		return nil, errBoom
	}

	const waiters = 20
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrFetch(context.Background(), key("a"), failing)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	for i, err := range errs {
		if !errors.Is(err, errBoom) {
			t.Errorf("caller %d: error = %v, want %v", i, err, errBoom)
		}
	}

	if _, err := c.GetOrFetch(context.Background(), key("a"), constFetch(&calls, metric.TagSet{"k": "v"})); err != nil {
		t.Fatalf("GetOrFetch() after failure error = %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

// TestCache_FetchPanic tests that a panicking fetch becomes an error and is not cached.
func TestCache_FetchPanic(t *testing.T) {
	c := newTestCache(t, Config{})

	_, err := c.GetOrFetch(context.Background(), key("a"), func(context.Context) (metric.TagSet, error) {
		panic("resolver bug")
	})
	if !errors.Is(err, ErrFetchPanic) {
		t.Fatalf("GetOrFetch() error = %v, want ErrFetchPanic", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

// TestCache_CallerCancel tests that an abandoned wait does not abort the shared fetch.
func TestCache_CallerCancel(t *testing.T) {
	c := newTestCache(t, Config{})

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (metric.TagSet, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return metric.TagSet{"k": "v"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, key("slow"), fetch)
		done <- err
	}()

	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("GetOrFetch() error = %v, want context.Canceled", err)
	}

	close(release)
	// The detached fetch stores its result once it completes.
	deadline := time.Now().Add(2 * time.Second)
	for c.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	got, ok := c.Get(key("slow"))
	if !ok || got["k"] != "v" {
		t.Fatalf("Get() = %v, %v; want stored tags", got, ok)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

// TestCache_FetchTimeout tests that the configured timeout reaches the fetch context.
func TestCache_FetchTimeout(t *testing.T) {
	c := newTestCache(t, Config{FetchTimeout: 10 * time.Millisecond})

	_, err := c.GetOrFetch(context.Background(), key("a"), func(ctx context.Context) (metric.TagSet, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetOrFetch() error = %v, want context.DeadlineExceeded", err)
	}
}

// TestCache_ReturnsCopies tests that callers cannot mutate cached entries.
func TestCache_ReturnsCopies(t *testing.T) {
	c := newTestCache(t, Config{})
	var calls atomic.Int32
	source := metric.TagSet{"k": "v"}

	got, err := c.GetOrFetch(context.Background(), key("a"), constFetch(&calls, source))
	if err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	got["k"] = "changed"
	source["k"] = "changed"

	again, _ := c.Get(key("a"))
	if again["k"] != "v" {
		t.Errorf("cached value mutated: %v", again)
	}
}

// TestCache_LFUEviction tests that inserting past capacity evicts the least
// frequently used entry.
func TestCache_LFUEviction(t *testing.T) {
	c := newTestCache(t, Config{Capacity: 3})
	ctx := context.Background()
	var calls atomic.Int32
	tags := metric.TagSet{"k": "v"}

	for _, id := range []string{"a", "b", "c"} {
		if _, err := c.GetOrFetch(ctx, key(id), constFetch(&calls, tags)); err != nil {
			t.Fatal(err)
		}
	}
	// a: 3 references, b: 1, c: 2.
	for _, id := range []string{"a", "a", "c"} {
		if _, err := c.GetOrFetch(ctx, key(id), constFetch(&calls, tags)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := c.GetOrFetch(ctx, key("d"), constFetch(&calls, tags)); err != nil {
		t.Fatal(err)
	}

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if _, ok := c.Get(key("b")); ok {
		t.Error("least frequently used entry b still cached")
	}
	for _, id := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key(id)); !ok {
			t.Errorf("entry %s evicted", id)
		}
	}
}

// TestCache_LFUTieBreak tests that equal frequencies evict the oldest insertion.
func TestCache_LFUTieBreak(t *testing.T) {
	c := newTestCache(t, Config{Capacity: 2})
	ctx := context.Background()
	var calls atomic.Int32

	for _, id := range []string{"first", "second", "third"} {
		if _, err := c.GetOrFetch(ctx, key(id), constFetch(&calls, metric.TagSet{})); err != nil {
			t.Fatal(err)
		}
	}

	if _, ok := c.Get(key("first")); ok {
		t.Error("oldest entry survived a tie")
	}
	if _, ok := c.Get(key("second")); !ok {
		t.Error("entry second evicted")
	}
}

// TestCache_Purge tests that Purge forces the next lookup to fetch again.
func TestCache_Purge(t *testing.T) {
	c := newTestCache(t, Config{})
	var calls atomic.Int32
	fetch := constFetch(&calls, metric.TagSet{"k": "v"})

	if _, err := c.GetOrFetch(context.Background(), key("a"), fetch); err != nil {
		t.Fatal(err)
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Purge, want 0", c.Len())
	}
	if _, err := c.GetOrFetch(context.Background(), key("a"), fetch); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

type countingObserver struct {
	mu sync.Mutex

	hits, misses, evicts int
	size                 int
}

func (o *countingObserver) RecordCacheHit(string)      { o.mu.Lock(); o.hits++; o.mu.Unlock() }
func (o *countingObserver) RecordCacheMiss(string)     { o.mu.Lock(); o.misses++; o.mu.Unlock() }
func (o *countingObserver) RecordCacheEviction(string) { o.mu.Lock(); o.evicts++; o.mu.Unlock() }
func (o *countingObserver) UpdateCacheSize(_ string, n int) {
	o.mu.Lock()
	o.size = n
	o.mu.Unlock()
}

// TestCache_Observer tests that cache statistics are reported.
func TestCache_Observer(t *testing.T) {
	obs := &countingObserver{}
	c := newTestCache(t, Config{Capacity: 1, Observer: obs})
	ctx := context.Background()
	var calls atomic.Int32

	for _, id := range []string{"a", "a", "b"} {
		if _, err := c.GetOrFetch(ctx, key(id), constFetch(&calls, metric.TagSet{})); err != nil {
			t.Fatal(err)
		}
	}

	if obs.hits != 1 || obs.misses != 2 || obs.evicts != 1 || obs.size != 1 {
		t.Errorf("observer = hits %d misses %d evictions %d size %d, want 1 2 1 1",
			obs.hits, obs.misses, obs.evicts, obs.size)
	}
}
