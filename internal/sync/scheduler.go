package sync

import (
	"context"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
)

// IntervalManual disables automatic sync; passes run only when triggered.
const IntervalManual = time.Duration(0)

// AutoSyncIntervals are the selectable auto-sync presets.
var AutoSyncIntervals = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// ValidInterval reports whether d is manual or one of the presets.
func ValidInterval(d time.Duration) bool {
	if d == IntervalManual {
		return true
	}
	for _, preset := range AutoSyncIntervals {
		if d == preset {
			return true
		}
	}
	return false
}

// Scheduler runs periodic sync passes. Overlap suppression lives in the
// service, so a slow pass simply causes the next tick to be skipped.
type Scheduler struct {
	service *Service

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        stdsync.Mutex
	isRunning bool
	interval  time.Duration
}

// NewScheduler creates a scheduler around a sync service.
func NewScheduler(service *Service) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(),
	}
}

// Start begins periodic syncing at the given preset interval.
// IntervalManual leaves the scheduler stopped.
func (s *Scheduler) Start(interval time.Duration) error {
	if !ValidInterval(interval) {
		return fmt.Errorf("unsupported sync interval %v", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if interval == IntervalManual {
		log.Printf("sync scheduler: manual mode, not starting")
		return nil
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := s.service.SyncAll(context.Background()); err != nil {
			log.Printf("sync scheduler: pass failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}

	s.entryID = entryID
	s.interval = interval
	s.cron.Start()
	s.isRunning = true

	log.Printf("sync scheduler: started, syncing every %v", interval)
	return nil
}

// Stop halts periodic syncing and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false

	log.Printf("sync scheduler: stopped")
}

// Reschedule switches to a new interval, restarting the cron entry.
func (s *Scheduler) Reschedule(interval time.Duration) error {
	s.Stop()
	return s.Start(interval)
}

// IsRunning reports whether periodic syncing is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled pass, or nil when the
// scheduler is stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}
