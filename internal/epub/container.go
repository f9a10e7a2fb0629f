package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
)

const containerPath = "META-INF/container.xml"

type containerXML struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// parseContainer locates META-INF/container.xml and returns the archive
// path of the package document named by the first rootfile.
func parseContainer(zr *zip.Reader) (string, error) {
	f := findFile(zr, containerPath)
	if f == nil {
		return "", fmt.Errorf("%w: %s not found", ErrInvalidContainer, containerPath)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}

	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidContainer, err)
	}

	if len(c.Rootfiles.Rootfile) == 0 || c.Rootfiles.Rootfile[0].FullPath == "" {
		return "", fmt.Errorf("%w: no rootfile", ErrInvalidContainer)
	}
	return c.Rootfiles.Rootfile[0].FullPath, nil
}

// findFile returns the archive entry with the given name, or nil.
func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
