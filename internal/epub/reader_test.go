package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive assembles an in-memory EPUB from entry name to content.
func buildArchive(t *testing.T, entries map[string]string) *bytes.Reader {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return bytes.NewReader(buf.Bytes())
}

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func chapterHTML(title, body string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body><p>%s</p></body></html>`, title, body)
}

func testOPF(manifest, spine string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
    <dc:title>The Ingenious Gentleman</dc:title>
    <dc:creator>Miguel de Cervantes</dc:creator>
    <dc:identifier>urn:isbn:978000</dc:identifier>
    <dc:language>es</dc:language>
    <dc:publisher>Francisco de Robles</dc:publisher>
    <dc:description>A novel.</dc:description>
  </metadata>
  <manifest>%s</manifest>
  <spine toc="ncx">%s</spine>
</package>`, manifest, spine)
}

func validBook(t *testing.T) *bytes.Reader {
	return buildArchive(t, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
			 <item id="c2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
			 <item id="c3" href="ch3.xhtml" media-type="application/xhtml+xml"/>
			 <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>`,
			`<itemref idref="c1"/><itemref idref="c2"/><itemref idref="c3"/>`),
		"OEBPS/ch1.xhtml": chapterHTML("First Sally", "In a village of La Mancha."),
		"OEBPS/ch2.xhtml": chapterHTML("The Windmills", "Thirty or forty windmills."),
		"OEBPS/ch3.xhtml": chapterHTML("The Galley Slaves", "A chain of galley slaves."),
		"OEBPS/toc.ncx": `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>First Sally</text></navLabel>
      <content src="ch1.xhtml"/>
      <navPoint id="n1a" playOrder="2">
        <navLabel><text>The Windmills</text></navLabel>
        <content src="ch2.xhtml#start"/>
      </navPoint>
    </navPoint>
    <navPoint id="n2" playOrder="3">
      <navLabel><text>The Galley Slaves</text></navLabel>
      <content src="ch3.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`,
	})
}

func TestOpenValidBook(t *testing.T) {
	ra := validBook(t)
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	c := r.Content()

	assert.Equal(t, "The Ingenious Gentleman", c.Metadata.Title)
	assert.Equal(t, "Miguel de Cervantes", c.Metadata.Author)
	assert.Equal(t, "urn:isbn:978000", c.Metadata.Identifier)
	assert.Equal(t, "es", c.Metadata.Language)
	assert.Equal(t, "Francisco de Robles", c.Metadata.Publisher)
	assert.Equal(t, "A novel.", c.Metadata.Description)

	require.Len(t, c.Chapters, 3)
	assert.Equal(t, "First Sally", c.Chapters[0].Title)
	assert.Equal(t, "The Windmills", c.Chapters[1].Title)
	assert.Equal(t, "The Galley Slaves", c.Chapters[2].Title)
	for i, ch := range c.Chapters {
		assert.Equal(t, i, ch.Order)
		assert.NotEmpty(t, ch.Text)
		assert.NotEmpty(t, ch.Markup)
	}
	assert.Equal(t, "In a village of La Mancha.", c.Chapters[0].Text)
}

func TestChapterOrderFollowsSpineNotManifest(t *testing.T) {
	// Manifest lists items in reverse; the spine decides reading order.
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c2" href="b.xhtml" media-type="application/xhtml+xml"/>
			 <item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/><itemref idref="c2"/>`),
		"OEBPS/a.xhtml": chapterHTML("Alpha", "first"),
		"OEBPS/b.xhtml": chapterHTML("Beta", "second"),
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	c := r.Content()
	require.Len(t, c.Chapters, 2)
	assert.Equal(t, "Alpha", c.Chapters[0].Title)
	assert.Equal(t, "Beta", c.Chapters[1].Title)
}

func TestMissingSpineItemsAreSkipped(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>
			 <item id="c2" href="missing.xhtml" media-type="application/xhtml+xml"/>
			 <item id="c3" href="b.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/><itemref idref="c2"/><itemref idref="ghost"/><itemref idref="c3"/>`),
		"OEBPS/a.xhtml": chapterHTML("Alpha", "first"),
		"OEBPS/b.xhtml": chapterHTML("Beta", "second"),
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	c := r.Content()
	require.Len(t, c.Chapters, 2)
	assert.Equal(t, "Alpha", c.Chapters[0].Title)
	assert.Equal(t, "Beta", c.Chapters[1].Title)
	assert.Equal(t, 1, c.Chapters[1].Order)
}

func TestChapterTitleFallback(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml": "<html><body><p>no headings here</p></body></html>",
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "Chapter 1", r.Content().Chapters[0].Title)
}

func TestTOCForest(t *testing.T) {
	ra := validBook(t)
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	toc := r.Content().TOC
	require.Len(t, toc, 2)

	assert.Equal(t, "First Sally", toc[0].Title)
	assert.Equal(t, 0, toc[0].Chapter)
	assert.Equal(t, 0, toc[0].Level)
	require.Len(t, toc[0].Children, 1)
	assert.Equal(t, "The Windmills", toc[0].Children[0].Title)
	assert.Equal(t, 1, toc[0].Children[0].Chapter) // fragment is ignored
	assert.Equal(t, 1, toc[0].Children[0].Level)

	assert.Equal(t, "The Galley Slaves", toc[1].Title)
	assert.Equal(t, 2, toc[1].Chapter)
}

func TestMissingTOCIsNotAnError(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml": chapterHTML("Alpha", "first"),
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.Content().TOC)
}

func TestCoverSelectionPriority(t *testing.T) {
	// cover-image property beats an item merely named cover.jpg.
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="cover.jpg" href="decoy.jpg" media-type="image/jpeg"/>
			 <item id="img1" href="real.jpg" media-type="image/jpeg" properties="cover-image"/>
			 <item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml":   chapterHTML("Alpha", "first"),
		"OEBPS/decoy.jpg": "decoy-bytes",
		"OEBPS/real.jpg":  "real-bytes",
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []byte("real-bytes"), r.Cover())
	assert.Equal(t, "OEBPS/real.jpg", r.Content().Metadata.CoverPath)
}

func TestCoverByIDNaming(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="book-cover-art" href="art.png" media-type="image/png"/>
			 <item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml": chapterHTML("Alpha", "first"),
		"OEBPS/art.png": "png-bytes",
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []byte("png-bytes"), r.Cover())
}

func TestCoverTieBreaksByDocumentOrder(t *testing.T) {
	// Several ids match the same tier; the first-declared item must win,
	// and keep winning on repeated opens.
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="cover-front" href="front.png" media-type="image/png"/>
			 <item id="cover-back" href="back.png" media-type="image/png"/>
			 <item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml":   chapterHTML("Alpha", "first"),
		"OEBPS/front.png": "front-bytes",
		"OEBPS/back.png":  "back-bytes",
	})

	for i := 0; i < 5; i++ {
		r, err := OpenReader(ra, ra.Size())
		require.NoError(t, err)
		assert.Equal(t, []byte("front-bytes"), r.Cover())
		require.NoError(t, r.Close())
	}
}

func TestNoCover(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml": chapterHTML("Alpha", "first"),
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	assert.Nil(t, r.Cover())
	assert.Empty(t, r.Content().Metadata.CoverPath)
}

func TestPathTraversalRejected(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"../evil.xhtml":          "outside",
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>`,
			`<itemref idref="c1"/>`),
		"OEBPS/a.xhtml": chapterHTML("Alpha", "first"),
	})
	_, err := OpenReader(ra, ra.Size())
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestCorruptArchive(t *testing.T) {
	ra := bytes.NewReader([]byte("this is not a zip file"))
	_, err := OpenReader(ra, ra.Size())
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestMissingContainer(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"mimetype": "application/epub+zip",
	})
	_, err := OpenReader(ra, ra.Size())
	assert.ErrorIs(t, err, ErrInvalidContainer)
}

func TestInvalidOPF(t *testing.T) {
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      "<package><metadata>broken",
	})
	_, err := OpenReader(ra, ra.Size())
	assert.ErrorIs(t, err, ErrInvalidOPF)
}

func TestRepeatedMetadataLastSeenWins(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="2.0">
  <metadata>
    <dc:title>Working Title</dc:title>
    <dc:title>Final Title</dc:title>
    <dc:creator>Ghost Writer</dc:creator>
    <dc:creator>Credited Author</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier>id-1</dc:identifier>
  </metadata>
  <manifest><item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="c1"/></spine>
</package>`
	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      opf,
		"OEBPS/a.xhtml":          chapterHTML("Alpha", "first"),
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "Final Title", r.Content().Metadata.Title)
	assert.Equal(t, "Credited Author", r.Content().Metadata.Author)
}
