// Package epub opens EPUB containers and extracts metadata, reading-order
// chapters, and the table of contents.
package epub

// Metadata holds the Dublin Core metadata of a book. Immutable once parsed.
type Metadata struct {
	Title       string
	Author      string
	Identifier  string
	Language    string
	Publisher   string
	Date        string
	Description string
	CoverPath   string
}

// Chapter is one spine item in reading order. Order matches the spine
// position in the package document and is never re-sorted.
type Chapter struct {
	Title  string
	Text   string // plain text, markup stripped
	Markup string // original XHTML
	Order  int    // spine position, 0-based
	href   string // archive path, used for TOC target resolution
}

// TOCEntry is a node in the table-of-contents forest.
type TOCEntry struct {
	Title    string
	Chapter  int // index into Content.Chapters, -1 if unresolved
	Level    int // nesting depth, roots are 0
	Children []TOCEntry
}

// Content is the parsed book.
type Content struct {
	Metadata Metadata
	Chapters []Chapter
	TOC      []TOCEntry
}

// manifestItem is one resource declared by the package document.
type manifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

func (m manifestItem) hasProperty(p string) bool {
	for _, prop := range m.Properties {
		if prop == p {
			return true
		}
	}
	return false
}

// packageDoc is the parsed OPF: metadata, manifest inventory, and spine order.
// ManifestOrder preserves document order so lookups that scan the manifest
// resolve ties deterministically.
type packageDoc struct {
	Metadata      Metadata
	Manifest      map[string]manifestItem
	ManifestOrder []string
	Spine         []string // ordered manifest item ids
}
