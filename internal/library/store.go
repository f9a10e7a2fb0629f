package library

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dominicmauro/dulcinea/internal/position"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("library: record not found")

// Store wraps the SQLite database holding catalogs, books, settings, and
// secrets.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the library database at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("library: open database: %w", err)
	}

	if err := db.AutoMigrate(&Catalog{}, &Book{}, &Setting{}, &Secret{}); err != nil {
		return nil, fmt.Errorf("library: migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle for stores layered on this database.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// --- catalogs ---

// SaveCatalog inserts or updates a catalog configuration.
func (s *Store) SaveCatalog(c *Catalog) error {
	return s.db.Save(c).Error
}

// Catalogs returns all configured catalogs.
func (s *Store) Catalogs() ([]Catalog, error) {
	var out []Catalog
	if err := s.db.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// EnabledCatalogs returns catalogs the user has switched on.
func (s *Store) EnabledCatalogs() ([]Catalog, error) {
	var out []Catalog
	if err := s.db.Where("enabled = ?", true).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCatalog removes a catalog configuration.
func (s *Store) DeleteCatalog(id uint) error {
	return s.db.Delete(&Catalog{}, id).Error
}

// --- books ---

// SaveBook inserts or updates a shelf entry.
func (s *Store) SaveBook(b *Book) error {
	return s.db.Save(b).Error
}

// Books returns the whole shelf.
func (s *Store) Books() ([]Book, error) {
	var out []Book
	if err := s.db.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// BookByDocumentID finds the shelf entry for a sync document id.
func (s *Store) BookByDocumentID(documentID string) (*Book, error) {
	var b Book
	err := s.db.Where("document_id = ?", documentID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BooksNeedingSync returns books whose local progress has not been
// uploaded yet.
func (s *Store) BooksNeedingSync() ([]Book, error) {
	var out []Book
	if err := s.db.Where("needs_sync = ?", true).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePosition records a new reading position for a book and marks it
// as needing sync. readingDelta is added to the accumulated duration.
func (s *Store) UpdatePosition(documentID string, pos position.Position, readAt time.Time, readingDelta time.Duration) error {
	pos = pos.Clamp()
	res := s.db.Model(&Book{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"chapter":      pos.Chapter,
			"fraction":     pos.Fraction,
			"last_read":    readAt,
			"reading_time": gorm.Expr("reading_time + ?", int64(readingDelta.Seconds())),
			"needs_sync":   true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSynced clears a book's dirty flag after a successful upload and
// records the sync time used for later conflict checks.
func (s *Store) MarkSynced(documentID string, at time.Time) error {
	return s.db.Model(&Book{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"needs_sync":  false,
			"last_synced": at,
		}).Error
}

// ApplyRemotePosition overwrites the local position with progress received
// from the sync server. The remote timestamp becomes both the last-read and
// last-synced time, and the book is no longer dirty.
func (s *Store) ApplyRemotePosition(documentID string, pos position.Position, remoteTime time.Time) error {
	pos = pos.Clamp()
	res := s.db.Model(&Book{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"chapter":     pos.Chapter,
			"fraction":    pos.Fraction,
			"last_read":   remoteTime,
			"last_synced": remoteTime,
			"needs_sync":  false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBook removes a shelf entry.
func (s *Store) DeleteBook(id uint) error {
	return s.db.Delete(&Book{}, id).Error
}

// --- settings ---

// GetSetting returns the stored value for key, or "" when unset.
func (s *Store) GetSetting(key string) (string, error) {
	var setting Setting
	err := s.db.First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// SetSetting stores a key-value pair, replacing any previous value.
func (s *Store) SetSetting(key, value string) error {
	return s.db.Save(&Setting{Key: key, Value: value}).Error
}
