// Package opds implements an OPDS 1.x catalog client: Atom feed fetching
// and parsing, link classification, and catalog search.
package opds

import (
	"strings"
	"time"
)

// Feed is a parsed OPDS catalog feed.
type Feed struct {
	ID      string
	Title   string
	Updated time.Time
	Entries []Entry
	Links   []Link
}

// Entry is one publication or navigation entry within a feed.
type Entry struct {
	ID         string
	Title      string
	Summary    string
	Authors    []string
	Published  *time.Time
	Updated    time.Time
	Links      []Link
	Categories []string
}

// Link is a feed or entry link with its href resolved to an absolute URL
// against the feed's request URL. Rel and Type are kept verbatim;
// classification is derived by substring checks.
type Link struct {
	Href  string
	Type  string
	Rel   string
	Title string
}

// Credentials carry HTTP Basic auth for a protected catalog.
type Credentials struct {
	Username string
	Password string
}

// downloadTypeMarkers identify acquisition payload media types.
var downloadTypeMarkers = []string{"epub", "pdf", "mobi", "audio"}

// IsDownload reports whether the link points at an e-book payload.
func (l Link) IsDownload() bool {
	t := strings.ToLower(l.Type)
	for _, marker := range downloadTypeMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

// IsImage reports whether the link is a cover or thumbnail image.
func (l Link) IsImage() bool {
	rel := strings.ToLower(l.Rel)
	return strings.Contains(rel, "image") ||
		strings.Contains(rel, "thumbnail") ||
		strings.Contains(rel, "cover")
}

// IsNavigation reports whether the link leads to another feed document
// rather than a leaf acquisition payload.
func (l Link) IsNavigation() bool {
	return strings.Contains(strings.ToLower(l.Type), "atom+xml")
}

// IsAcquisition reports whether the link's relation carries the OPDS
// acquisition marker.
func (l Link) IsAcquisition() bool {
	return strings.Contains(strings.ToLower(l.Rel), "acquisition")
}

// DownloadLink returns the entry's first e-book payload link, or nil.
func (e *Entry) DownloadLink() *Link {
	for i := range e.Links {
		if e.Links[i].IsDownload() {
			return &e.Links[i]
		}
	}
	return nil
}

// ImageLink returns the entry's first cover/thumbnail link, or nil.
func (e *Entry) ImageLink() *Link {
	for i := range e.Links {
		if e.Links[i].IsImage() {
			return &e.Links[i]
		}
	}
	return nil
}
