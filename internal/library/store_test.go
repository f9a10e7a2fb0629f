package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominicmauro/dulcinea/internal/position"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCatalogCRUD(t *testing.T) {
	s := newTestStore(t)

	c := &Catalog{Name: "Standard Ebooks", URL: "https://standardebooks.org/feeds/opds", Enabled: true}
	require.NoError(t, s.SaveCatalog(c))
	require.NotZero(t, c.ID)

	require.NoError(t, s.SaveCatalog(&Catalog{Name: "Disabled", URL: "https://example.org/opds", Enabled: false}))

	all, err := s.Catalogs()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	enabled, err := s.EnabledCatalogs()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "Standard Ebooks", enabled[0].Name)

	require.NoError(t, s.DeleteCatalog(c.ID))
	all, err = s.Catalogs()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBookPositionUpdate(t *testing.T) {
	s := newTestStore(t)

	b := &Book{Title: "Don Quixote", Filename: "quixote.epub", DocumentID: "doc-1", TotalChapters: 52}
	require.NoError(t, s.SaveBook(b))

	readAt := time.Now()
	require.NoError(t, s.UpdatePosition("doc-1", position.Position{Chapter: 3, Fraction: 0.5}, readAt, 90*time.Second))

	got, err := s.BookByDocumentID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Chapter)
	assert.Equal(t, 0.5, got.Fraction)
	assert.True(t, got.NeedsSync)
	assert.Equal(t, int64(90), got.ReadingTime)

	// Duration accumulates across updates.
	require.NoError(t, s.UpdatePosition("doc-1", position.Position{Chapter: 4, Fraction: 0.1}, readAt, 30*time.Second))
	got, err = s.BookByDocumentID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(120), got.ReadingTime)
}

func TestUpdatePositionUnknownBook(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdatePosition("missing", position.Position{}, time.Now(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBooksNeedingSync(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveBook(&Book{Filename: "a.epub", DocumentID: "a", NeedsSync: true}))
	require.NoError(t, s.SaveBook(&Book{Filename: "b.epub", DocumentID: "b", NeedsSync: false}))

	dirty, err := s.BooksNeedingSync()
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "a", dirty[0].DocumentID)

	syncedAt := time.Now()
	require.NoError(t, s.MarkSynced("a", syncedAt))
	dirty, err = s.BooksNeedingSync()
	require.NoError(t, err)
	assert.Empty(t, dirty)

	got, err := s.BookByDocumentID("a")
	require.NoError(t, err)
	require.NotNil(t, got.LastSynced)
	assert.WithinDuration(t, syncedAt, *got.LastSynced, time.Second)
}

func TestApplyRemotePosition(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveBook(&Book{Filename: "a.epub", DocumentID: "a", NeedsSync: true}))

	remoteTime := time.Now().Add(-time.Hour)
	require.NoError(t, s.ApplyRemotePosition("a", position.Position{Chapter: 7, Fraction: 0.5}, remoteTime))

	got, err := s.BookByDocumentID("a")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Chapter)
	assert.InDelta(t, 0.5, got.Fraction, 1e-9)
	assert.False(t, got.NeedsSync)
	require.NotNil(t, got.LastSynced)
	assert.WithinDuration(t, remoteTime, *got.LastSynced, time.Second)

	err = s.ApplyRemotePosition("missing", position.Position{}, remoteTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetSetting("sync.interval")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, s.SetSetting("sync.interval", "15m"))
	require.NoError(t, s.SetSetting("sync.interval", "30m"))

	v, err = s.GetSetting("sync.interval")
	require.NoError(t, err)
	assert.Equal(t, "30m", v)
}

func TestBookByDocumentIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.BookByDocumentID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
