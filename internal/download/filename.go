package download

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dominicmauro/dulcinea/internal/opds"
)

var (
	forbiddenFilenameChars = regexp.MustCompile(`[/\\:?*<>|"]`)
	collapsedWhitespace    = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips characters that filesystems reject and
// normalizes whitespace. An empty result becomes "Untitled".
func sanitizeFilename(name string) string {
	name = forbiddenFilenameChars.ReplaceAllString(name, "")
	name = collapsedWhitespace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	if len(name) > 200 {
		name = strings.TrimSpace(name[:200])
	}
	if name == "" {
		name = "Untitled"
	}
	return name
}

// filenameFor derives the saved filename: the Content-Disposition header
// when present and parseable, otherwise the sanitized entry title with an
// extension matching the payload type.
func filenameFor(contentDisposition string, entry opds.Entry) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil && params["filename"] != "" {
			fn := sanitizeFilename(params["filename"])
			if !hasKnownExtension(fn) {
				fn += extensionFor(entry)
			}
			return fn
		}
	}
	return sanitizeFilename(entry.Title) + extensionFor(entry)
}

// extensionFor picks an extension from the entry's download link type.
func extensionFor(entry opds.Entry) string {
	link := entry.DownloadLink()
	if link == nil {
		return ".epub"
	}
	t := strings.ToLower(link.Type)
	switch {
	case strings.Contains(t, "pdf"):
		return ".pdf"
	case strings.Contains(t, "mobi"):
		return ".mobi"
	case strings.Contains(t, "audio"):
		return ".mp3"
	default:
		return ".epub"
	}
}

// hasKnownExtension reports whether the name already carries a book
// extension, so Content-Disposition names are used as-is.
func hasKnownExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".epub", ".pdf", ".mobi", ".azw3", ".fb2", ".mp3", ".m4b":
		return true
	}
	return false
}
