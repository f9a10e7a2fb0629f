// Package storage persists EPUB and cover bytes on the local filesystem,
// keyed by generated filename. Writes go through a temp file and rename
// so a crashed download never leaves a half-written book behind.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore saves and retrieves book and cover files under a data
// directory.
type FileStore struct {
	booksDir  string
	coversDir string
}

// NewFileStore creates the store directories if needed.
func NewFileStore(dataDir string) (*FileStore, error) {
	s := &FileStore{
		booksDir:  filepath.Join(dataDir, "books"),
		coversDir: filepath.Join(dataDir, "covers"),
	}
	for _, dir := range []string{s.booksDir, s.coversDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return s, nil
}

// SaveBook streams book content to the store and returns the final path.
func (s *FileStore) SaveBook(filename string, content io.Reader) (string, error) {
	return s.save(s.booksDir, filename, content)
}

// SaveCover writes cover image bytes and returns the final path.
func (s *FileStore) SaveCover(filename string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(s.coversDir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dest := filepath.Join(s.coversDir, filename)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// BookPath returns the path a stored book would live at.
func (s *FileStore) BookPath(filename string) string {
	return filepath.Join(s.booksDir, filename)
}

// OpenBook opens a stored book for reading.
func (s *FileStore) OpenBook(filename string) (*os.File, error) {
	return os.Open(s.BookPath(filename))
}

// RemoveBook deletes a stored book. Removing a missing file is not an
// error.
func (s *FileStore) RemoveBook(filename string) error {
	err := os.Remove(s.BookPath(filename))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) save(dir, filename string, content io.Reader) (string, error) {
	tmp, err := os.CreateTemp(dir, "dl_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, content); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, filename)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}
