package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/dominicmauro/dulcinea/internal/htmltext"
)

// Reader provides access to the contents of one EPUB container.
type Reader struct {
	zrc     *zip.ReadCloser
	zr      *zip.Reader
	pkg     *packageDoc
	baseDir string
	content *Content
}

// Open opens an EPUB file from a path.
func Open(filePath string) (*Reader, error) {
	zrc, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	r := &Reader{zrc: zrc, zr: &zrc.Reader}
	if err := r.init(); err != nil {
		zrc.Close()
		return nil, err
	}
	return r, nil
}

// OpenReader opens an EPUB from an io.ReaderAt.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	r := &Reader{zr: zr}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) init() error {
	if err := checkEntryPaths(r.zr); err != nil {
		return err
	}

	opfPath, err := parseContainer(r.zr)
	if err != nil {
		return err
	}

	pkg, baseDir, err := parseOPF(r.zr, opfPath)
	if err != nil {
		return err
	}
	r.pkg = pkg
	r.baseDir = baseDir

	chapters := r.loadChapters()
	toc := r.parseTOC(chapters)

	meta := pkg.Metadata
	if item := r.coverItem(); item != nil {
		meta.CoverPath = r.resolveHref(item.Href)
	}

	r.content = &Content{
		Metadata: meta,
		Chapters: chapters,
		TOC:      toc,
	}
	return nil
}

// checkEntryPaths rejects archives whose entries would escape the archive
// root when written to disk.
func checkEntryPaths(zr *zip.Reader) error {
	for _, f := range zr.File {
		name := f.Name
		if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
			return fmt.Errorf("%w: absolute entry path %q", ErrExtractionFailed, name)
		}
		clean := path.Clean(name)
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("%w: entry path escapes archive: %q", ErrExtractionFailed, name)
		}
	}
	return nil
}

// loadChapters reads every spine item in order. Unknown manifest ids and
// missing content files are skipped without aborting the book.
func (r *Reader) loadChapters() []Chapter {
	chapters := make([]Chapter, 0, len(r.pkg.Spine))

	for i, idref := range r.pkg.Spine {
		item, ok := r.pkg.Manifest[idref]
		if !ok {
			continue
		}

		href := r.resolveHref(item.Href)
		raw, err := r.readFile(href)
		if err != nil {
			continue
		}

		markup := string(raw)
		title := htmltext.Title(markup)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}

		chapters = append(chapters, Chapter{
			Title:  title,
			Text:   htmltext.Strip(markup),
			Markup: markup,
			Order:  len(chapters),
			href:   href,
		})
	}

	return chapters
}

// resolveHref resolves a manifest href against the package document's
// directory.
func (r *Reader) resolveHref(href string) string {
	if decoded, err := url.QueryUnescape(href); err == nil {
		href = decoded
	}
	if r.baseDir == "" {
		return path.Clean(href)
	}
	return path.Join(r.baseDir, href)
}

func (r *Reader) readFile(name string) ([]byte, error) {
	f := findFile(r.zr, name)
	if f == nil {
		return nil, fmt.Errorf("entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Content returns the parsed book.
func (r *Reader) Content() *Content {
	return r.content
}

// Close releases the underlying archive handle.
func (r *Reader) Close() error {
	if r.zrc != nil {
		return r.zrc.Close()
	}
	return nil
}
