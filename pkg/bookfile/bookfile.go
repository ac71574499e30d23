// Package bookfile provides structural validation and metadata parsing for
// ebook and comic archive formats (EPUB, CBZ, CBR).
package bookfile

import (
	"path"
	"sort"
	"strings"
)

// Validation failure reasons. These strings are stable: callers persist
// them verbatim as failure reasons.
const (
	ReasonNotZip           = "File is not a valid ZIP archive"
	ReasonMissingMimetype  = "Missing mimetype file"
	ReasonMissingContainer = "Missing META-INF/container.xml"
	ReasonNoRootfilePath   = "No rootfile path in container.xml"
	ReasonEmptyArchive     = "Archive is empty"
	ReasonNoImages         = "No image files found in archive"
	ReasonFileNotFound     = "File not found"
	ReasonNotRar           = "File is not a valid RAR archive"
)

// InvalidMimetypeReason builds the reason for an EPUB whose mimetype entry
// holds the wrong value.
func InvalidMimetypeReason(found string) string {
	return "Invalid mimetype: " + found
}

// MissingContentReason builds the reason for an EPUB whose rootfile path
// points at a nonexistent archive entry.
func MissingContentReason(path string) string {
	return "Missing content file: " + path
}

// Result is the outcome of a structural validation pass. Reason is set only
// when Valid is false. The remaining fields are structural hints: EPUBs
// report the rootfile path, comic archives report their image layout.
type Result struct {
	Reason         string
	RootfilePath   string
	FirstImagePath string
	ImageCount     int
	HasComicInfo   bool
	Valid          bool
}

// Invalid builds a failed Result with the given reason.
func Invalid(reason string) *Result {
	return &Result{Valid: false, Reason: reason}
}

// Metadata holds the bibliographic fields an extractor can recover from a
// file. Empty strings mean "not present"; Volume is nil when absent or
// non-numeric.
type Metadata struct {
	Title           string
	Author          string
	Description     string
	Publisher       string
	Language        string
	ISBN            string
	PublicationDate string
	Series          string
	Volume          *int
	Genres          []string
}

// IsEmpty reports whether extraction recovered nothing.
func (m *Metadata) IsEmpty() bool {
	return m.Title == "" && m.Author == "" && m.Description == "" &&
		m.Publisher == "" && m.Language == "" && m.ISBN == "" &&
		m.PublicationDate == "" && m.Series == "" && m.Volume == nil &&
		len(m.Genres) == 0
}

// Cover holds image bytes pulled out of an archive.
type Cover struct {
	Data []byte
	Name string // entry name inside the archive
	Ext  string // lowercased extension including the dot, ".jpg" when unknown
}

// Extraction is the (possibly partial) result of running an extractor.
// Metadata and cover recovery succeed or fail independently.
type Extraction struct {
	Metadata          *Metadata
	Cover             *Cover
	MetadataExtracted bool
	CoverExtracted    bool
}

// Success reports whether the extractor recovered anything at all.
func (e *Extraction) Success() bool {
	return e.MetadataExtracted || e.CoverExtracted
}

// imageExtensions are the archive entry extensions treated as page images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImagePath reports whether an archive entry name looks like an image.
func IsImagePath(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// ImageExt returns the lowercased extension of an image entry name,
// defaulting to ".jpg" when the name has none.
func ImageExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ".jpg"
	}
	return ext
}

// FirstImage returns the alphabetically first image entry name, or ""
// when the list contains no images.
func FirstImage(names []string) string {
	images := make([]string, 0, len(names))
	for _, name := range names {
		if IsImagePath(name) {
			images = append(images, name)
		}
	}
	if len(images) == 0 {
		return ""
	}
	sort.Strings(images)
	return images[0]
}
