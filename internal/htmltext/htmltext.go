// Package htmltext projects chapter markup onto plain reading text.
// It is a best-effort normalizer, not a renderer: tags are dropped,
// entities are decoded, and block boundaries become line breaks.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockTags are elements whose close should terminate a line of text.
var blockTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Li:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Blockquote: true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Table:      true,
	atom.Tr:         true,
}

// skippedTags are elements whose text content is never reading text.
var skippedTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// Strip removes markup from an HTML/XHTML fragment and returns the plain
// text. The tokenizer tolerates malformed tag soup: a stray "<" that does
// not open a tag is kept as literal text. Entities are decoded as part of
// tokenization.
func Strip(markup string) string {
	tz := html.NewTokenizer(strings.NewReader(markup))

	var b strings.Builder
	skipDepth := 0

	for {
		tt := tz.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or an unrecoverable tokenizer state; either way we
			// return what was collected so far.
			return tidy(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tz.Text())
			}
		case html.StartTagToken:
			name, _ := tz.TagName()
			a := atom.Lookup(name)
			if skippedTags[a] {
				skipDepth++
			}
			if a == atom.Br {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			a := atom.Lookup(name)
			if skippedTags[a] && skipDepth > 0 {
				skipDepth--
			}
			if blockTags[a] {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tz.TagName()
			if atom.Lookup(name) == atom.Br {
				b.WriteByte('\n')
			}
		}
	}
}

// Title extracts a display title from chapter markup: the first non-empty
// <title>, then <h1>, then <h2>. Returns "" if none is present.
func Title(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	for _, a := range []atom.Atom{atom.Title, atom.H1, atom.H2} {
		if t := strings.TrimSpace(findText(doc, a)); t != "" {
			return t
		}
	}
	return ""
}

// findText returns the text content of the first element matching a.
func findText(n *html.Node, a atom.Atom) string {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return nodeText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findText(c, a); t != "" {
			return t
		}
	}
	return ""
}

// nodeText collects all text beneath a node.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// tidy collapses runs of blank lines and trims the result.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
