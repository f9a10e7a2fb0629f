package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title       []string `xml:"title"`
		Creator     []string `xml:"creator"`
		Identifier  []string `xml:"identifier"`
		Language    []string `xml:"language"`
		Publisher   []string `xml:"publisher"`
		Date        []string `xml:"date"`
		Description []string `xml:"description"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// parseOPF parses the package document and returns the package plus the
// directory used to resolve manifest hrefs.
func parseOPF(zr *zip.Reader, opfPath string) (*packageDoc, string, error) {
	f := findFile(zr, opfPath)
	if f == nil {
		return nil, "", fmt.Errorf("%w: %s not found", ErrInvalidOPF, opfPath)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidOPF, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidOPF, err)
	}

	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidOPF, err)
	}

	pkg := &packageDoc{
		Metadata: collectMetadata(&opf),
		Manifest: make(map[string]manifestItem, len(opf.Manifest.Items)),
	}

	for _, item := range opf.Manifest.Items {
		mi := manifestItem{
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
		}
		if item.Properties != "" {
			mi.Properties = strings.Fields(item.Properties)
		}
		if _, seen := pkg.Manifest[item.ID]; !seen {
			pkg.ManifestOrder = append(pkg.ManifestOrder, item.ID)
		}
		pkg.Manifest[item.ID] = mi
	}

	for _, ref := range opf.Spine.ItemRefs {
		pkg.Spine = append(pkg.Spine, ref.IDRef)
	}

	if len(pkg.Manifest) == 0 || len(pkg.Spine) == 0 {
		return nil, "", fmt.Errorf("%w: empty manifest or spine", ErrInvalidOPF)
	}

	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}
	return pkg, baseDir, nil
}

// collectMetadata accumulates dc elements into the immutable metadata
// value. Repeated elements are last-seen-wins per element type.
func collectMetadata(opf *opfPackage) Metadata {
	var meta Metadata
	assign := func(dst *string, values []string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
			}
		}
	}
	assign(&meta.Title, opf.Metadata.Title)
	assign(&meta.Author, opf.Metadata.Creator)
	assign(&meta.Identifier, opf.Metadata.Identifier)
	assign(&meta.Language, opf.Metadata.Language)
	assign(&meta.Publisher, opf.Metadata.Publisher)
	assign(&meta.Date, opf.Metadata.Date)
	assign(&meta.Description, opf.Metadata.Description)
	return meta
}
