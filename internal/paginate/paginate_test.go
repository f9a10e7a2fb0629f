package paginate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominicmauro/dulcinea/internal/position"
)

func testSettings() Settings {
	return Settings{
		ViewportWidth:  360,
		ViewportHeight: 600,
		FontSize:       16,
		FontFamily:     "serif",
		LineSpacing:    1.4,
	}
}

func sampleText() string {
	para := "In a village of La Mancha, the name of which I have no desire to call to mind, there lived not long since one of those gentlemen that keep a lance in the lance-rack, an old buckler, a lean hack, and a greyhound for coursing."
	return strings.Join([]string{para, para, para, para, para, para}, "\n\n")
}

func TestPaginateDeterministic(t *testing.T) {
	a := Paginate(sampleText(), "Chapter One", testSettings(), 0)
	b := Paginate(sampleText(), "Chapter One", testSettings(), 0)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Text, b[i].Text)
		assert.Equal(t, a[i].Start, b[i].Start)
		assert.Equal(t, a[i].End, b[i].End)
	}
}

func TestPaginateRangesTileText(t *testing.T) {
	text := sampleText()
	pages := Paginate(text, "Chapter One", testSettings(), 3)
	require.NotEmpty(t, pages)

	runes := []rune(text)
	offset := 0
	for i, p := range pages {
		assert.Equal(t, 3, p.ChapterIndex)
		assert.Equal(t, i, p.PageIndex)
		assert.Equal(t, offset, p.Start, "page %d range must begin where the previous ended", i)
		assert.GreaterOrEqual(t, p.End, p.Start)
		offset = p.End
	}
	assert.Equal(t, len(runes), offset, "last page must end at the end of the text")
}

func TestPaginateTitleOnPageZero(t *testing.T) {
	pages := Paginate(sampleText(), "The First Sally", testSettings(), 0)
	require.NotEmpty(t, pages)
	assert.Contains(t, pages[0].Text, "The First Sally")
	for _, p := range pages[1:] {
		assert.NotContains(t, p.Text, "The First Sally")
	}
}

func TestPaginateDegenerateViewport(t *testing.T) {
	for _, set := range []Settings{
		{},
		{ViewportWidth: 0, ViewportHeight: 600, FontSize: 16, LineSpacing: 1.4},
		{ViewportWidth: 360, ViewportHeight: 0, FontSize: 16, LineSpacing: 1.4},
		{ViewportWidth: 360, ViewportHeight: 600, FontSize: 0, LineSpacing: 1.4},
	} {
		pages := Paginate(sampleText(), "Title", set, 0)
		require.Len(t, pages, 1)
		assert.Equal(t, "Title", pages[0].Text)
		assert.Equal(t, 0, pages[0].Start)
		assert.Equal(t, 0, pages[0].End)
	}
}

func TestPaginateEmptyChapter(t *testing.T) {
	pages := Paginate("", "Empty Chapter", testSettings(), 0)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Text, "Empty Chapter")
	assert.Equal(t, 0, pages[0].End)
}

func TestPaginateLongUnbrokenWord(t *testing.T) {
	text := strings.Repeat("x", 5000)
	pages := Paginate(text, "T", testSettings(), 0)
	require.NotEmpty(t, pages)
	assert.Equal(t, len(text), pages[len(pages)-1].End)
}

// A fractional position must survive converting to a page index and back
// under the same pagination.
func TestFractionRoundTripUnderPagination(t *testing.T) {
	pages := Paginate(sampleText(), "Chapter One", testSettings(), 0)
	total := len(pages)
	if total < 2 {
		t.Skip("fixture paginated to fewer than two pages")
	}

	for page := 0; page < total; page++ {
		f := position.FractionForPage(page, total)
		assert.Equal(t, page, position.PageForFraction(f, total))
	}
}

func TestSmallerViewportYieldsMorePages(t *testing.T) {
	big := testSettings()
	small := testSettings()
	small.ViewportHeight = 200

	bigPages := Paginate(sampleText(), "T", big, 0)
	smallPages := Paginate(sampleText(), "T", small, 0)
	assert.Greater(t, len(smallPages), len(bigPages))
}
