package epub

import (
	"encoding/xml"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const ncxMediaType = "application/x-dtbncx+xml"

type ncxDocument struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// parseTOC locates a navigation source and builds the TOC forest. A book
// without navigation gets an empty forest, not an error.
func (r *Reader) parseTOC(chapters []Chapter) []TOCEntry {
	index := chapterIndexByHref(chapters)

	// EPUB 3 nav document takes precedence.
	if item := r.findManifest(func(m manifestItem) bool { return m.hasProperty("nav") }); item != nil {
		if raw, err := r.readFile(r.resolveHref(item.Href)); err == nil {
			if entries := parseNavDocument(raw, r.baseDir, index); len(entries) > 0 {
				return entries
			}
		}
	}

	// Legacy NCX.
	if item := r.findManifest(func(m manifestItem) bool { return m.MediaType == ncxMediaType }); item != nil {
		if raw, err := r.readFile(r.resolveHref(item.Href)); err == nil {
			var ncx ncxDocument
			if err := xml.Unmarshal(raw, &ncx); err == nil {
				return convertNavPoints(ncx.NavMap.NavPoints, 0, r.baseDir, index)
			}
		}
	}

	return nil
}

// findManifest scans the manifest in document order, so ties within a
// selection tier always resolve to the first-declared item.
func (r *Reader) findManifest(match func(manifestItem) bool) *manifestItem {
	for _, id := range r.pkg.ManifestOrder {
		item := r.pkg.Manifest[id]
		if match(item) {
			return &item
		}
	}
	return nil
}

// convertNavPoints maps NCX navPoints at the given depth into TOC entries.
// Depth-1 points become forest roots; descendants hang off their parents.
func convertNavPoints(points []ncxNavPoint, level int, baseDir string, index map[string]int) []TOCEntry {
	entries := make([]TOCEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, TOCEntry{
			Title:    strings.TrimSpace(p.Label),
			Chapter:  resolveTarget(p.Content.Src, baseDir, index),
			Level:    level,
			Children: convertNavPoints(p.Children, level+1, baseDir, index),
		})
	}
	return entries
}

// parseNavDocument parses an EPUB 3 navigation document: the first <nav>
// with a toc type, then its nested <ol> list structure.
func parseNavDocument(raw []byte, baseDir string, index map[string]int) []TOCEntry {
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return nil
	}

	nav := findTOCNav(doc)
	if nav == nil {
		return nil
	}
	ol := findElement(nav, atom.Ol)
	if ol == nil {
		return nil
	}
	return parseNavList(ol, 0, baseDir, index)
}

func findTOCNav(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
		for _, a := range n.Attr {
			if (a.Key == "epub:type" || a.Key == "type") && strings.Contains(a.Val, "toc") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTOCNav(c); found != nil {
			return found
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func parseNavList(ol *html.Node, level int, baseDir string, index map[string]int) []TOCEntry {
	var entries []TOCEntry
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		entry := TOCEntry{Chapter: -1, Level: level}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.A:
				entry.Title = strings.TrimSpace(textContent(c))
				for _, a := range c.Attr {
					if a.Key == "href" {
						entry.Chapter = resolveTarget(a.Val, baseDir, index)
					}
				}
			case atom.Span:
				if entry.Title == "" {
					entry.Title = strings.TrimSpace(textContent(c))
				}
			case atom.Ol:
				entry.Children = parseNavList(c, level+1, baseDir, index)
			}
		}

		if entry.Title != "" || len(entry.Children) > 0 {
			entries = append(entries, entry)
		}
	}
	return entries
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// chapterIndexByHref maps resolved chapter archive paths to chapter indexes.
func chapterIndexByHref(chapters []Chapter) map[string]int {
	index := make(map[string]int, len(chapters))
	for i, ch := range chapters {
		index[ch.href] = i
	}
	return index
}

// resolveTarget maps a navigation href (possibly carrying a fragment) to a
// chapter index, or -1 if it points outside the spine.
func resolveTarget(href, baseDir string, index map[string]int) int {
	if href == "" {
		return -1
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if href == "" {
		return -1
	}

	resolved := path.Clean(href)
	if baseDir != "" {
		resolved = path.Join(baseDir, href)
	}

	if idx, ok := index[resolved]; ok {
		return idx
	}
	return -1
}
