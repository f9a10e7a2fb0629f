package epub

import "errors"

// Typed failures surfaced by the extractor. Per-chapter problems (a spine
// item pointing at a missing file) are absorbed; these cover whole-document
// failures only.
var (
	// ErrExtractionFailed indicates the archive is unreadable, corrupt, or
	// contains entries escaping the archive root.
	ErrExtractionFailed = errors.New("epub: archive extraction failed")

	// ErrInvalidContainer indicates META-INF/container.xml is missing or
	// does not name a package document.
	ErrInvalidContainer = errors.New("epub: invalid or missing container.xml")

	// ErrInvalidOPF indicates the package document is malformed or lacks
	// required elements.
	ErrInvalidOPF = errors.New("epub: invalid package document")
)
