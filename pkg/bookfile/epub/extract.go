package epub

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// Extract opens an EPUB and recovers bibliographic metadata plus cover
// image bytes. The two halves succeed or fail independently; a missing
// cover never blocks metadata and vice versa.
func Extract(filePath string) (*bookfile.Extraction, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer zr.Close()

	extraction := &bookfile.Extraction{}

	container := findEntry(&zr.Reader, containerPath)
	if container == nil {
		return extraction, nil
	}
	rootfile, err := parseContainer(container)
	if err != nil || rootfile == "" {
		return extraction, nil
	}

	opfEntry := findEntry(&zr.Reader, rootfile)
	if opfEntry == nil {
		return extraction, nil
	}

	pkg, err := parseOPF(opfEntry)
	if err != nil {
		return extraction, nil
	}

	if meta := metadataFromOPF(pkg); !meta.IsEmpty() {
		extraction.Metadata = meta
		extraction.MetadataExtracted = true
	}

	if cover := extractCover(&zr.Reader, pkg, rootfile); cover != nil {
		extraction.Cover = cover
		extraction.CoverExtracted = true
	}

	return extraction, nil
}

// extractCover locates the cover manifest item and reads its bytes.
// The href resolves relative to the OPF directory, falling back to the
// raw href for packages with absolute-ish entries.
func extractCover(zr *zip.Reader, pkg *opfPackage, opfPath string) *bookfile.Cover {
	href := coverHref(pkg)
	if href == "" {
		return nil
	}

	candidate := href
	if dir := path.Dir(opfPath); dir != "." {
		candidate = path.Join(dir, href)
	}

	entry := findEntry(zr, candidate)
	if entry == nil {
		entry = findEntry(zr, href)
	}
	if entry == nil {
		return nil
	}

	data, err := readEntry(entry)
	if err != nil || len(data) == 0 {
		return nil
	}

	return &bookfile.Cover{
		Data: data,
		Name: entry.Name,
		Ext:  bookfile.ImageExt(entry.Name),
	}
}

// coverHref resolves the cover image href: first the EPUB2 style
// <meta name="cover" content="id"/> indirection through the manifest,
// then the EPUB3 cover-image manifest property.
func coverHref(pkg *opfPackage) string {
	for _, meta := range pkg.Metadata.Metas {
		if meta.Name != "cover" || meta.Content == "" {
			continue
		}
		for _, item := range pkg.Manifest {
			if item.ID == meta.Content && item.Href != "" {
				return item.Href
			}
		}
	}

	for _, item := range pkg.Manifest {
		if strings.Contains(item.Properties, "cover-image") && item.Href != "" {
			return item.Href
		}
	}

	return ""
}
