package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dominicmauro/dulcinea/internal/opds"
	"github.com/dominicmauro/dulcinea/internal/storage"
)

const (
	// progressPollInterval decouples progress reporting from network
	// chunking: a sampler reads the byte counter on this cadence instead
	// of firing a callback per chunk.
	progressPollInterval = 100 * time.Millisecond

	// completedGracePeriod is how long a finished task stays visible in
	// the table before it is dropped.
	completedGracePeriod = 3 * time.Second

	downloadTimeout = 300 * time.Second
)

// ErrCancelled is returned from Download when the transfer was aborted
// via Cancel. The task ends paused, not failed; retrying is a fresh
// Download call, transfer state is not preserved.
var ErrCancelled = errors.New("download: cancelled")

// ProgressFunc receives fractional progress in [0, 1]. Values are
// monotonically non-decreasing and end at 1.0 on success.
type ProgressFunc func(fraction float64)

// Store is the persistence surface the manager writes finished books to.
type Store interface {
	SaveBook(filename string, content io.Reader) (string, error)
}

type task struct {
	snapshot  Task
	cancel    context.CancelFunc
	received  atomic.Int64
	total     int64
	cancelled bool
}

// Manager tracks active downloads. All table mutation happens under one
// mutex, from whichever goroutine runs the download; snapshots returned
// to callers are copies.
type Manager struct {
	mu         sync.Mutex
	tasks      map[string]*task
	httpClient *http.Client
	store      Store
	grace      time.Duration
	poll       time.Duration
}

// NewManager creates a download manager writing into store.
func NewManager(store Store) *Manager {
	return &Manager{
		tasks:      make(map[string]*task),
		httpClient: &http.Client{Timeout: downloadTimeout},
		store:      store,
		grace:      completedGracePeriod,
		poll:       progressPollInterval,
	}
}

var _ Store = (*storage.FileStore)(nil)

// Download streams the book behind url into the store. Progress is
// reported through progressFn on a fixed polling cadence. Returns the
// local path of the completed file.
func (m *Manager) Download(ctx context.Context, url string, entry opds.Entry, creds *opds.Credentials, progressFn ProgressFunc) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := &task{
		snapshot: Task{EntryID: entry.ID, State: StateDownloading},
		cancel:   cancel,
	}

	m.mu.Lock()
	m.tasks[entry.ID] = t
	m.mu.Unlock()

	path, err := m.run(ctx, url, entry, creds, t, progressFn)

	m.mu.Lock()
	defer m.mu.Unlock()

	if t.cancelled {
		// Cancel already marked the task paused and dropped it.
		return "", ErrCancelled
	}
	if err != nil {
		t.snapshot.State = StateFailed
		t.snapshot.Err = err
		return "", err
	}

	t.snapshot.State = StateCompleted
	t.snapshot.Progress = 1
	t.snapshot.LocalPath = path
	time.AfterFunc(m.grace, func() { m.drop(entry.ID, t) })
	return path, nil
}

func (m *Manager) run(ctx context.Context, url string, entry opds.Entry, creds *opds.Credentials, t *task, progressFn ProgressFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("download: build request: %w", err)
	}
	if creds != nil {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("%w: %v", opds.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", opds.ErrAuthenticationRequired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &opds.ServerError{StatusCode: resp.StatusCode}
	}

	t.total = resp.ContentLength

	stopSampler := m.startSampler(t, progressFn)
	defer stopSampler()

	filename := filenameFor(resp.Header.Get("Content-Disposition"), entry)
	path, err := m.store.SaveBook(filename, &countingReader{r: resp.Body, n: &t.received})
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("download: save: %w", err)
	}

	// Stop sampling before the terminal callback so 1.0 is the last
	// value a caller ever observes.
	stopSampler()
	if progressFn != nil {
		progressFn(1)
	}
	return path, nil
}

// startSampler launches the polling goroutine that turns the byte counter
// into monotonically non-decreasing fractional progress. The returned
// stop function waits for the sampler to exit.
func (m *Manager) startSampler(t *task, progressFn ProgressFunc) func() {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(m.poll)
		defer ticker.Stop()

		last := 0.0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f := fraction(t.received.Load(), t.total)
				if f < last {
					f = last
				}
				if f > 0.99 {
					f = 0.99 // 1.0 is reserved for actual completion
				}
				last = f

				m.mu.Lock()
				t.snapshot.Progress = f
				m.mu.Unlock()

				if progressFn != nil {
					progressFn(f)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}

func fraction(received, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(received) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}

// Cancel aborts the in-flight download for an entry. The task becomes
// paused and is removed from tracking immediately; returns false if no
// active download matches.
func (m *Manager) Cancel(entryID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[entryID]
	if !ok || t.snapshot.State != StateDownloading {
		return false
	}

	t.cancelled = true
	t.snapshot.State = StatePaused
	t.cancel()
	delete(m.tasks, entryID)
	return true
}

// Tasks returns a snapshot of all tracked downloads.
func (m *Manager) Tasks() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.snapshot)
	}
	return out
}

// Task returns the snapshot for one entry id.
func (m *Manager) Task(entryID string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[entryID]
	if !ok {
		return Task{}, false
	}
	return t.snapshot, true
}

// drop removes a task only if the table still holds that exact task; a
// newer download for the same entry is left alone.
func (m *Manager) drop(entryID string, t *task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.tasks[entryID]; ok && cur == t {
		delete(m.tasks, entryID)
	}
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
