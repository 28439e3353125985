package tagcache

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PurgeScheduler empties a Cache on a cron schedule so that tag changes made
// in the control plane eventually reach the output.
type PurgeScheduler struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewPurgeScheduler validates schedule and prepares a scheduler for cache.
// Schedules use the standard five-field cron syntax or descriptors such as
// "@hourly" and "@every 30m".
func NewPurgeScheduler(cache *Cache, schedule string) (*PurgeScheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return &PurgeScheduler{
		cache:    cache,
		schedule: schedule,
		cron:     cron.New(),
	}, nil
}

// Start begins purging. Calling Start on a running scheduler is a no-op.
func (s *PurgeScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.cache.Purge); err != nil {
		return fmt.Errorf("schedule cache purge: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.cache.logger.Info("cache purge scheduled", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (s *PurgeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

// IsRunning reports whether the schedule is active.
func (s *PurgeScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled purge, or nil when not running.
func (s *PurgeScheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
