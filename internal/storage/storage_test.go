package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenBook(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveBook("quixote.epub", strings.NewReader("epub-bytes"))
	require.NoError(t, err)
	assert.Equal(t, store.BookPath("quixote.epub"), path)

	f, err := store.OpenBook("quixote.epub")
	require.NoError(t, err)
	defer f.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "epub-bytes", string(data))
}

func TestSaveCover(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveCover("quixote.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, data)
}

func TestRemoveBook(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveBook("gone.epub", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.RemoveBook("gone.epub"))

	_, err = os.Stat(store.BookPath("gone.epub"))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	assert.NoError(t, store.RemoveBook("gone.epub"))
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.SaveBook("a.epub", strings.NewReader("content"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "books"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "dl_tmp_"), "leftover temp file %s", e.Name())
	}
}
