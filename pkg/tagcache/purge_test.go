package tagcache

import (
	"context"
	"sync/atomic"
	"testing"

	"mercator-hq/tagstream/pkg/metric"
)

func TestPurgeScheduler_Start(t *testing.T) {
	tests := []struct {
		name      string
		schedule  string
		wantError bool
	}{
		{name: "hourly", schedule: "@hourly"},
		{name: "every six hours", schedule: "0 */6 * * *"},
		{name: "interval", schedule: "@every 30m"},
		{name: "invalid", schedule: "not a schedule", wantError: true},
		{name: "empty", schedule: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache(t, Config{})

			s, err := NewPurgeScheduler(c, tt.schedule)
			if (err != nil) != tt.wantError {
				t.Fatalf("NewPurgeScheduler() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil {
				return
			}

			if err := s.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer s.Stop()

			if !s.IsRunning() {
				t.Error("IsRunning() = false after Start")
			}
			if s.NextRun() == nil {
				t.Error("NextRun() = nil for running scheduler")
			}
		})
	}
}

func TestPurgeScheduler_Stop(t *testing.T) {
	c := newTestCache(t, Config{})
	var calls atomic.Int32
	if _, err := c.GetOrFetch(context.Background(), key("a"), constFetch(&calls, metric.TagSet{})); err != nil {
		t.Fatal(err)
	}

	s, err := NewPurgeScheduler(c, "@every 1h")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()

	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if s.NextRun() != nil {
		t.Error("NextRun() != nil after Stop")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (no purge ran)", c.Len())
	}
}
