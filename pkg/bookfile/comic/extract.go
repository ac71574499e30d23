package comic

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nwaples/rardecode/v2"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// ExtractCBZ pulls ComicInfo.xml metadata and the first page image out of
// a CBZ archive. Metadata and cover extraction succeed independently.
func ExtractCBZ(path string) (*bookfile.Extraction, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open cbz: %w", err)
	}
	defer zr.Close()

	extraction := &bookfile.Extraction{}

	var names []string
	var infoEntry *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
		if infoEntry == nil && isExtractableComicInfo(f.Name) {
			infoEntry = f
		}
	}

	if infoEntry != nil {
		if data, err := readEntry(infoEntry); err == nil {
			applyComicInfo(extraction, data)
		}
	}

	if first := bookfile.FirstImage(names); first != "" {
		for _, f := range zr.File {
			if f.Name != first {
				continue
			}
			if data, err := readEntry(f); err == nil && len(data) > 0 {
				extraction.Cover = &bookfile.Cover{
					Data: data,
					Name: first,
					Ext:  bookfile.ImageExt(first),
				}
				extraction.CoverExtracted = true
			}
			break
		}
	}

	return extraction, nil
}

// ExtractCBR pulls ComicInfo.xml metadata and the first page image out of
// a CBR archive. RAR archives stream sequentially, so this walks the
// archive once for the listing and metadata, then reopens it for the
// chosen cover entry.
func ExtractCBR(path string) (*bookfile.Extraction, error) {
	extraction := &bookfile.Extraction{}

	rr, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open cbr: %w", err)
	}

	var names []string
	var infoData []byte
	for {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rr.Close()
			return nil, fmt.Errorf("read cbr: %w", err)
		}
		if hdr.IsDir {
			continue
		}
		names = append(names, hdr.Name)
		if infoData == nil && isExtractableComicInfo(hdr.Name) {
			infoData, _ = io.ReadAll(rr)
		}
	}
	rr.Close()

	if infoData != nil {
		applyComicInfo(extraction, infoData)
	}

	if first := bookfile.FirstImage(names); first != "" {
		if data, err := readRarEntry(path, first); err == nil && len(data) > 0 {
			extraction.Cover = &bookfile.Cover{
				Data: data,
				Name: first,
				Ext:  bookfile.ImageExt(first),
			}
			extraction.CoverExtracted = true
		}
	}

	return extraction, nil
}

// applyComicInfo parses ComicInfo.xml bytes into the extraction, marking
// metadata extracted only when something was recovered.
func applyComicInfo(extraction *bookfile.Extraction, data []byte) {
	info, err := parseComicInfo(data)
	if err != nil {
		return
	}
	if meta := info.metadata(); !meta.IsEmpty() {
		extraction.Metadata = meta
		extraction.MetadataExtracted = true
	}
}

// isExtractableComicInfo matches ComicInfo.xml at the archive root or one
// directory deep; deeper copies are ignored by the extractor.
func isExtractableComicInfo(name string) bool {
	norm := strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	if norm == "comicinfo.xml" {
		return true
	}
	return strings.HasSuffix(norm, "/comicinfo.xml") && strings.Count(norm, "/") == 1
}

// readEntry decompresses a single ZIP entry into memory.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readRarEntry re-walks a RAR archive and reads one entry by name.
func readRarEntry(path, name string) ([]byte, error) {
	rr, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer rr.Close()

	for {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("entry %q not found", name)
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name == name {
			return io.ReadAll(rr)
		}
	}
}
