// Package comic validates CBZ and CBR comic archives and extracts
// ComicInfo.xml metadata and cover pages.
package comic

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/nwaples/rardecode/v2"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// archiveEntry is the format-neutral view of one archive member.
type archiveEntry struct {
	name  string
	isDir bool
}

// ValidateCBZ checks that the file is a ZIP archive containing at least
// one page image.
func ValidateCBZ(path string) (*bookfile.Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return bookfile.Invalid(bookfile.ReasonNotZip), nil
	}
	defer zr.Close()

	entries := make([]archiveEntry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, archiveEntry{name: f.Name, isDir: f.FileInfo().IsDir()})
	}
	return scanEntries(entries), nil
}

// ValidateCBR checks that the file exists, is a RAR archive, and contains
// at least one page image.
func ValidateCBR(path string) (*bookfile.Result, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return bookfile.Invalid(bookfile.ReasonFileNotFound), nil
		}
		return nil, err
	}

	entries, err := listRarEntries(path)
	if err != nil {
		return bookfile.Invalid(bookfile.ReasonNotRar), nil
	}
	return scanEntries(entries), nil
}

// scanEntries classifies an archive listing: empty, image-free, or valid
// with image layout hints.
func scanEntries(entries []archiveEntry) *bookfile.Result {
	if len(entries) == 0 {
		return bookfile.Invalid(bookfile.ReasonEmptyArchive)
	}

	var names []string
	hasComicInfo := false
	for _, e := range entries {
		if e.isDir {
			continue
		}
		names = append(names, e.name)
		if isComicInfoName(e.name) {
			hasComicInfo = true
		}
	}

	first := bookfile.FirstImage(names)
	if first == "" {
		return bookfile.Invalid(bookfile.ReasonNoImages)
	}

	count := 0
	for _, name := range names {
		if bookfile.IsImagePath(name) {
			count++
		}
	}

	return &bookfile.Result{
		Valid:          true,
		ImageCount:     count,
		FirstImagePath: first,
		HasComicInfo:   hasComicInfo,
	}
}

// isComicInfoName matches ComicInfo.xml entries at any depth, with
// separators and case normalized.
func isComicInfoName(name string) bool {
	norm := strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	return norm == "comicinfo.xml" || strings.HasSuffix(norm, "/comicinfo.xml")
}

// listRarEntries walks a RAR archive and returns its member listing.
func listRarEntries(path string) ([]archiveEntry, error) {
	rr, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rr.Close()

	var entries []archiveEntry
	for {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, archiveEntry{name: hdr.Name, isDir: hdr.IsDir})
	}
	return entries, nil
}
