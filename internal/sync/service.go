package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/dominicmauro/dulcinea/internal/library"
	"github.com/dominicmauro/dulcinea/internal/position"
)

// State is the coarse sync status shown to the user.
type State int

const (
	StateNotConfigured State = iota
	StateIdle
	StateSyncing
	StateError
)

func (s State) String() string {
	switch s {
	case StateNotConfigured:
		return "not configured"
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the sync state machine.
type Status struct {
	State      State
	LastSynced *time.Time
	LastError  string
}

// Service drives sync passes over the shelf: it uploads dirty local
// positions, pulls remote ones, and applies the timestamp conflict rule.
type Service struct {
	mu        stdsync.RWMutex
	client    *Client
	lib       *library.Store
	status    Status
	isSyncing bool
}

// NewService creates a sync service. It starts unconfigured; call
// Configure once server credentials are known.
func NewService(lib *library.Store) *Service {
	return &Service{
		lib:    lib,
		status: Status{State: StateNotConfigured},
	}
}

// Configure installs (or clears, with nil) the protocol client.
func (s *Service) Configure(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = client
	if client == nil {
		s.status = Status{State: StateNotConfigured}
	} else if s.status.State == StateNotConfigured {
		s.status.State = StateIdle
	}
}

// Status returns a snapshot of the current sync status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsSyncing reports whether a sync pass is in progress.
func (s *Service) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// TestConnection checks server reachability and credentials.
func (s *Service) TestConnection(ctx context.Context) error {
	client := s.currentClient()
	if client == nil {
		return ErrNotConfigured
	}
	return client.TestConnection(ctx)
}

// SyncBook synchronizes a single book: local progress is uploaded when
// dirty, then remote progress is fetched and applied only when its
// timestamp is strictly newer than the last sync we recorded.
func (s *Service) SyncBook(ctx context.Context, book *library.Book) error {
	client := s.currentClient()
	if client == nil {
		return ErrNotConfigured
	}
	if book.DocumentID == "" {
		return fmt.Errorf("book %q has no document id", book.Filename)
	}

	lastSync := time.Time{}
	if book.LastSynced != nil {
		lastSync = *book.LastSynced
	}

	if book.NeedsSync {
		detail := ProgressDetail{
			Chapter:       book.Chapter,
			Position:      book.Fraction,
			TotalChapters: book.TotalChapters,
			Duration:      book.ReadingTime,
		}
		if book.LastRead != nil {
			detail.LastRead = book.LastRead.Unix()
		}

		if err := client.UploadProgress(ctx, book.DocumentID, detail, bookPercentage(book)); err != nil {
			return fmt.Errorf("upload failed for %q: %w", book.Title, err)
		}

		uploadedAt := time.Now()
		if err := s.lib.MarkSynced(book.DocumentID, uploadedAt); err != nil {
			return fmt.Errorf("failed to mark %q synced: %w", book.Title, err)
		}
		lastSync = uploadedAt
	}

	remote, err := client.DownloadProgress(ctx, book.DocumentID)
	if err != nil {
		return fmt.Errorf("download failed for %q: %w", book.Title, err)
	}
	if remote == nil {
		return nil
	}

	// Remote progress wins only when strictly newer than our last sync.
	if !remote.Timestamp.After(lastSync) {
		return nil
	}

	pos := position.Position{Chapter: remote.Detail.Chapter, Fraction: remote.Detail.Position}
	if err := s.lib.ApplyRemotePosition(book.DocumentID, pos, remote.Timestamp); err != nil {
		return fmt.Errorf("failed to apply remote position for %q: %w", book.Title, err)
	}

	log.Printf("sync: applied remote position for %q (chapter %d, %.0f%%)",
		book.Title, remote.Detail.Chapter, remote.Detail.Position*100)
	return nil
}

// SyncAll runs a full pass over the shelf. Per-book failures are logged
// and skipped; authentication failures abort the pass. An overlapping
// call while a pass is running is suppressed.
func (s *Service) SyncAll(ctx context.Context) error {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("sync: skipped (already syncing)")
		return nil
	}
	if s.client == nil {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	s.isSyncing = true
	s.status.State = StateSyncing
	s.mu.Unlock()

	err := s.syncAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSyncing = false
	if err != nil {
		s.status.State = StateError
		s.status.LastError = err.Error()
		return err
	}
	now := time.Now()
	s.status = Status{State: StateIdle, LastSynced: &now}
	return nil
}

func (s *Service) syncAll(ctx context.Context) error {
	books, err := s.lib.Books()
	if err != nil {
		return fmt.Errorf("failed to load shelf: %w", err)
	}

	start := time.Now()
	failures := 0
	for i := range books {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.SyncBook(ctx, &books[i]); err != nil {
			if errors.Is(err, ErrAuthenticationFailed) {
				return err
			}
			failures++
			log.Printf("sync: %v", err)
		}
	}

	log.Printf("sync: completed pass over %d books (%d failed) in %v",
		len(books), failures, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Service) currentClient() *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// bookPercentage is overall progress through the book in [0,1].
func bookPercentage(book *library.Book) float64 {
	if book.TotalChapters <= 0 {
		return 0
	}
	p := (float64(book.Chapter) + book.Fraction) / float64(book.TotalChapters)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
