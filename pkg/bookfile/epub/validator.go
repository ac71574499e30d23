// Package epub validates EPUB archives against the OCF container rules and
// extracts OPF metadata and cover images.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

const (
	mimetypeEntry = "mimetype"
	mimetypeValue = "application/epub+zip"
	containerPath = "META-INF/container.xml"
)

// Validate checks the structural invariants of an EPUB: a ZIP container,
// the exact mimetype, an OCF container.xml, a rootfile path, and the OPF
// document that path names. Structural failures come back as an invalid
// Result; the error return is reserved for I/O faults while reading.
func Validate(path string) (*bookfile.Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return bookfile.Invalid(bookfile.ReasonNotZip), nil
	}
	defer zr.Close()

	mimetype := findEntry(&zr.Reader, mimetypeEntry)
	if mimetype == nil {
		return bookfile.Invalid(bookfile.ReasonMissingMimetype), nil
	}

	content, err := readEntry(mimetype)
	if err != nil {
		return nil, fmt.Errorf("read mimetype: %w", err)
	}
	// Trailing whitespace is tolerated; some packagers append a newline.
	if got := strings.TrimSpace(string(content)); got != mimetypeValue {
		return bookfile.Invalid(bookfile.InvalidMimetypeReason(got)), nil
	}

	container := findEntry(&zr.Reader, containerPath)
	if container == nil {
		return bookfile.Invalid(bookfile.ReasonMissingContainer), nil
	}

	rootfile, err := parseContainer(container)
	if err != nil || rootfile == "" {
		return bookfile.Invalid(bookfile.ReasonNoRootfilePath), nil
	}

	if findEntry(&zr.Reader, rootfile) == nil {
		return bookfile.Invalid(bookfile.MissingContentReason(rootfile)), nil
	}

	return &bookfile.Result{Valid: true, RootfilePath: rootfile}, nil
}

// containerXML mirrors the OCF container document.
type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// parseContainer returns the first rootfile path declared in container.xml.
func parseContainer(entry *zip.File) (string, error) {
	data, err := readEntry(entry)
	if err != nil {
		return "", err
	}

	var container containerXML
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", err
	}
	if len(container.Rootfiles) == 0 {
		return "", nil
	}
	return strings.TrimSpace(container.Rootfiles[0].FullPath), nil
}

// findEntry locates an archive entry by exact name.
func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// readEntry decompresses a single archive entry into memory.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
