// Package library is the persistent store for user-owned state: catalog
// configurations, the book shelf, reading positions, and string settings.
package library

import "time"

// Catalog is a user-configured OPDS catalog. Created, edited, and deleted
// only through explicit user action.
type Catalog struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255"`
	URL         string `gorm:"size:1024"`
	Username    string `gorm:"size:255"`
	Enabled     bool
	LastUpdated *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Book is one entry on the shelf together with its reading state.
// Chapter and Fraction form the reading position; NeedsSync marks local
// progress not yet uploaded.
type Book struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"size:512"`
	Author        string `gorm:"size:512"`
	Filename      string `gorm:"size:512;uniqueIndex"`
	DocumentID    string `gorm:"size:64;index"`
	CoverPath     string `gorm:"size:1024"`
	Chapter       int
	Fraction      float64
	TotalChapters int
	LastRead      *time.Time
	LastSynced    *time.Time
	ReadingTime   int64 // accumulated seconds
	NeedsSync     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Setting is one persisted key-value pair.
type Setting struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// Secret is an encrypted credential blob stored by logical key. The
// value is opaque here; the secrets package owns encryption.
type Secret struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
