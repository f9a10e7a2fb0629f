package epub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavDocumentTOC(t *testing.T) {
	nav := `<?xml version="1.0"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="toc">
    <h1>Contents</h1>
    <ol>
      <li><a href="a.xhtml">Part One</a>
        <ol>
          <li><a href="b.xhtml">Inside</a></li>
        </ol>
      </li>
      <li><a href="b.xhtml#middle">Part Two</a></li>
    </ol>
  </nav>
</body>
</html>`

	ra := buildArchive(t, map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf": testOPF(
			`<item id="c1" href="a.xhtml" media-type="application/xhtml+xml"/>
			 <item id="c2" href="b.xhtml" media-type="application/xhtml+xml"/>
			 <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>`,
			`<itemref idref="c1"/><itemref idref="c2"/>`),
		"OEBPS/a.xhtml":   chapterHTML("Part One", "one"),
		"OEBPS/b.xhtml":   chapterHTML("Part Two", "two"),
		"OEBPS/nav.xhtml": nav,
	})
	r, err := OpenReader(ra, ra.Size())
	require.NoError(t, err)
	defer r.Close()

	toc := r.Content().TOC
	require.Len(t, toc, 2)
	assert.Equal(t, "Part One", toc[0].Title)
	assert.Equal(t, 0, toc[0].Chapter)
	require.Len(t, toc[0].Children, 1)
	assert.Equal(t, "Inside", toc[0].Children[0].Title)
	assert.Equal(t, 1, toc[0].Children[0].Chapter)
	assert.Equal(t, 1, toc[0].Children[0].Level)
	assert.Equal(t, 1, toc[1].Chapter)
}

func TestResolveTarget(t *testing.T) {
	index := map[string]int{
		"OEBPS/a.xhtml": 0,
		"OEBPS/b.xhtml": 1,
	}

	assert.Equal(t, 0, resolveTarget("a.xhtml", "OEBPS", index))
	assert.Equal(t, 1, resolveTarget("b.xhtml#frag", "OEBPS", index))
	assert.Equal(t, -1, resolveTarget("unknown.xhtml", "OEBPS", index))
	assert.Equal(t, -1, resolveTarget("", "OEBPS", index))
	assert.Equal(t, -1, resolveTarget("#frag-only", "OEBPS", index))
}
