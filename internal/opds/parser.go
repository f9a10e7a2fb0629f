package opds

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed/atom"
)

// parseFeed parses an Atom document into a Feed, resolving link hrefs
// against the request URL. Parsing is best-effort: missing elements leave
// zero values and unparseable dates default to now; only a document the
// parser cannot recover from yields ErrInvalidFeed.
//
// A fresh parser is created per call: parse state is single-use, so
// concurrent fetches for different catalogs never share it.
func parseFeed(body io.Reader, requestURL string) (*Feed, error) {
	parser := &atom.Parser{}
	src, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	base, _ := url.Parse(requestURL)
	now := time.Now()

	feed := &Feed{
		ID:      src.ID,
		Title:   src.Title,
		Updated: timeOrDefault(src.UpdatedParsed, now),
		Links:   convertLinks(src.Links, base),
	}

	for _, e := range src.Entries {
		if e == nil {
			continue
		}

		entry := Entry{
			ID:      e.ID,
			Title:   e.Title,
			Summary: e.Summary,
			Updated: timeOrDefault(e.UpdatedParsed, now),
			Links:   convertLinks(e.Links, base),
		}
		if entry.Summary == "" && e.Content != nil {
			entry.Summary = e.Content.Value
		}
		if e.PublishedParsed != nil {
			t := *e.PublishedParsed
			entry.Published = &t
		}
		for _, a := range e.Authors {
			if a != nil && a.Name != "" {
				entry.Authors = append(entry.Authors, a.Name)
			}
		}
		for _, c := range e.Categories {
			if c == nil {
				continue
			}
			if c.Label != "" {
				entry.Categories = append(entry.Categories, c.Label)
			} else if c.Term != "" {
				entry.Categories = append(entry.Categories, c.Term)
			}
		}

		feed.Entries = append(feed.Entries, entry)
	}

	return feed, nil
}

func convertLinks(links []*atom.Link, base *url.URL) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l == nil || l.Href == "" {
			continue
		}
		out = append(out, Link{
			Href:  resolveHref(l.Href, base),
			Type:  l.Type,
			Rel:   l.Rel,
			Title: l.Title,
		})
	}
	return out
}

// resolveHref makes a link href absolute against the feed's request URL.
// Already-absolute hrefs pass through unchanged.
func resolveHref(href string, base *url.URL) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func timeOrDefault(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
