// Package position holds the reading position model shared by pagination
// and progress sync: a chapter index plus a fractional position within the
// chapter. The fraction is independent of any specific pagination; a page
// index is only meaningful for one set of typography settings and must be
// re-derived after any settings change.
package position

import "math"

// Position locates a reader within a book.
type Position struct {
	Chapter  int     `json:"chapter"`
	Fraction float64 `json:"fraction"`
}

// Clamp returns the position with the chapter floored at 0 and the
// fraction clamped into [0, 1].
func (p Position) Clamp() Position {
	if p.Chapter < 0 {
		p.Chapter = 0
	}
	p.Fraction = math.Min(1, math.Max(0, p.Fraction))
	return p
}

// PageForFraction converts a fractional chapter position to a page index
// under a pagination with totalPages pages. The result is clamped to
// [0, totalPages-1].
func PageForFraction(fraction float64, totalPages int) int {
	if totalPages <= 1 {
		return 0
	}
	page := int(math.Round(fraction * float64(totalPages-1)))
	if page < 0 {
		return 0
	}
	if page >= totalPages {
		return totalPages - 1
	}
	return page
}

// FractionForPage converts a page index back to a fractional position.
// For a single-page chapter the fraction is 0.
func FractionForPage(page, totalPages int) float64 {
	if totalPages <= 1 {
		return 0
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	return float64(page) / float64(totalPages-1)
}
