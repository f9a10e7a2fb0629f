package epub

import "strings"

// Cover returns the raw bytes of the book's cover image, or nil if the
// manifest declares none. Selection priority: the cover-image property,
// then an item whose id is exactly "cover", then any id containing
// "cover" (case-insensitive).
func (r *Reader) Cover() []byte {
	item := r.coverItem()
	if item == nil {
		return nil
	}

	raw, err := r.readFile(r.resolveHref(item.Href))
	if err != nil {
		return nil
	}
	return raw
}

func (r *Reader) coverItem() *manifestItem {
	if item := r.findManifest(func(m manifestItem) bool { return m.hasProperty("cover-image") }); item != nil {
		return item
	}
	if item := r.findManifest(func(m manifestItem) bool {
		return strings.EqualFold(m.ID, "cover") && isImageType(m.MediaType)
	}); item != nil {
		return item
	}
	return r.findManifest(func(m manifestItem) bool {
		return strings.Contains(strings.ToLower(m.ID), "cover") && isImageType(m.MediaType)
	})
}

func isImageType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
