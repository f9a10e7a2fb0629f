// Package paginate splits chapter text into discrete, addressable pages
// for a given viewport and typography. Pages are derived state: they are
// recomputed on any settings change and never persisted. The split is a
// pure function of its inputs, which is what makes a saved fractional
// position restorable after a settings round-trip.
package paginate

import (
	"math"
	"strings"
)

// titleScale is the size multiplier for the synthetic chapter-title block
// prepended to page 0.
const titleScale = 1.4

// Settings are the typography inputs that drive the page split.
type Settings struct {
	ViewportWidth  float64
	ViewportHeight float64
	FontSize       float64
	FontFamily     string
	LineSpacing    float64 // line-height multiplier, e.g. 1.4
}

// Page is one laid-out page of a chapter. Start and End are rune offsets
// into the chapter text; concatenating the ranges of all pages of a
// chapter reconstructs the text with no gaps or overlaps. The chapter
// title rendered on page 0 is synthetic and not part of any range.
type Page struct {
	ChapterIndex int
	PageIndex    int
	Text         string
	Start        int
	End          int
}

// Paginate lays the chapter out against repeated viewport-sized frames.
// It never returns an empty slice: a degenerate viewport yields a single
// page carrying only the title.
func Paginate(text, title string, set Settings, chapterIndex int) []Page {
	runes := []rune(text)
	cols, rows := frame(set)

	if cols < 1 || rows < 1 {
		return []Page{{
			ChapterIndex: chapterIndex,
			PageIndex:    0,
			Text:         title,
		}}
	}

	titleLines := wrapTitle(title, set)

	var pages []Page
	offset := 0
	for {
		pageIndex := len(pages)

		avail := rows
		var lines []string
		if pageIndex == 0 {
			// Title lines render larger, so each costs more than one
			// body row, plus one spacing row after the block.
			avail -= len(titleLines)*titleRowCost() + 1
			if avail < 0 {
				avail = 0
			}
			lines = append(lines, titleLines...)
			if avail > 0 {
				lines = append(lines, "")
			}
		}

		start := offset
		for i := 0; i < avail && offset < len(runes); i++ {
			line, consumed := nextLine(runes, offset, cols)
			lines = append(lines, line)
			offset += consumed
		}

		pages = append(pages, Page{
			ChapterIndex: chapterIndex,
			PageIndex:    pageIndex,
			Text:         strings.Join(lines, "\n"),
			Start:        start,
			End:          offset,
		})

		if offset >= len(runes) {
			return pages
		}
	}
}

// frame computes the character grid for one viewport-sized frame.
func frame(set Settings) (cols, rows int) {
	gw := glyphWidth(set.FontFamily, set.FontSize)
	lh := set.FontSize * lineSpacing(set)
	if gw <= 0 || lh <= 0 {
		return 0, 0
	}
	return int(set.ViewportWidth / gw), int(set.ViewportHeight / lh)
}

func lineSpacing(set Settings) float64 {
	if set.LineSpacing <= 0 {
		return 1
	}
	return set.LineSpacing
}

// glyphWidth is the average advance width assumed for the family. A crude
// model, but it only has to be deterministic, not typographically exact.
func glyphWidth(family string, size float64) float64 {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "mono"):
		return size * 0.60
	case strings.Contains(f, "serif") && !strings.Contains(f, "sans"):
		return size * 0.50
	default:
		return size * 0.53
	}
}

func titleRowCost() int {
	return int(math.Ceil(titleScale))
}

// wrapTitle wraps the title at the width available to title-sized glyphs.
func wrapTitle(title string, set Settings) []string {
	gw := glyphWidth(set.FontFamily, set.FontSize*titleScale)
	cols := 1
	if gw > 0 {
		if c := int(set.ViewportWidth / gw); c > 1 {
			cols = c
		}
	}

	runes := []rune(title)
	var lines []string
	offset := 0
	for offset < len(runes) {
		line, consumed := nextLine(runes, offset, cols)
		lines = append(lines, line)
		offset += consumed
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// nextLine takes one visual line of at most cols runes starting at offset
// and reports how many source runes it consumed, including the newline or
// the break-point space. Consumed is always at least 1, so layout always
// makes progress.
func nextLine(runes []rune, offset, cols int) (string, int) {
	rest := runes[offset:]

	limit := cols
	if limit > len(rest) {
		limit = len(rest)
	}

	// Hard break at an explicit newline inside the window.
	for i := 0; i < limit; i++ {
		if rest[i] == '\n' {
			return string(rest[:i]), i + 1
		}
	}

	// Everything left fits on this line.
	if len(rest) <= cols {
		return string(rest), len(rest)
	}

	// Wrap at the last space inside the window, consuming the space.
	for i := limit; i > 0; i-- {
		if rest[i-1] == ' ' {
			return string(rest[:i-1]), i
		}
	}

	// A single word wider than the frame: break mid-word.
	return string(rest[:limit]), limit
}
