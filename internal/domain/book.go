// Package domain contains the core business entities for the InkShelf ebook and manga library.
package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// ContentType classifies what kind of publication a file holds.
type ContentType string

// Content types. Derived from the file extension and immutable after create.
const (
	ContentTypeBook  ContentType = "book"
	ContentTypeManga ContentType = "manga"
)

// FileType identifies the container format of a library file.
type FileType string

// Supported container formats.
const (
	FileTypeEpub FileType = "epub"
	FileTypeCbz  FileType = "cbz"
	FileTypeCbr  FileType = "cbr"
)

// BookStatus tracks a book through the ingestion pipeline.
type BookStatus string

// Pipeline states. A row leaves pending exactly once: to enriched or to
// quarantine. It never returns.
const (
	StatusPending    BookStatus = "pending"
	StatusEnriched   BookStatus = "enriched"
	StatusQuarantine BookStatus = "quarantine"
)

// Book represents one ingested file in the library.
type Book struct {
	ID              int64       `json:"id"`
	FilePath        string      `json:"file_path"`
	Filename        string      `json:"filename"`
	Extension       string      `json:"extension"`
	ContentType     ContentType `json:"content_type"`
	FileType        FileType    `json:"file_type"`
	Status          BookStatus  `json:"status"`
	FailureReason   string      `json:"failure_reason,omitempty"`
	Title           *string     `json:"title,omitempty"`
	Author          *string     `json:"author,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Publisher       *string     `json:"publisher,omitempty"`
	Language        *string     `json:"language,omitempty"`
	ISBN            *string     `json:"isbn,omitempty"`
	PublicationDate *string     `json:"publication_date,omitempty"`
	Series          *string     `json:"series,omitempty"`
	Volume          *int        `json:"volume,omitempty"`
	Genres          []string    `json:"genres,omitempty"`
	CoverPath       *string     `json:"cover_path,omitempty"`
	CoverBlurHash   *string     `json:"cover_blurhash,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// SupportedExtensions lists the file extensions the pipeline ingests,
// lowercased with leading dot.
//
//nolint:gochecknoglobals // Static lookup shared by watcher, scanner, processor
var SupportedExtensions = []string{".epub", ".cbz", ".cbr"}

// IsSupportedExtension reports whether ext names an ingestable format.
// Matching is case-insensitive; ext must include the leading dot.
func IsSupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".epub", ".cbz", ".cbr":
		return true
	}
	return false
}

// FileTypeForExtension maps a filename extension to its FileType.
// The second return is false for unsupported extensions.
func FileTypeForExtension(ext string) (FileType, bool) {
	switch strings.ToLower(ext) {
	case ".epub":
		return FileTypeEpub, true
	case ".cbz":
		return FileTypeCbz, true
	case ".cbr":
		return FileTypeCbr, true
	}
	return "", false
}

// ContentTypeForExtension maps a filename extension to a ContentType.
// EPUBs are books; comic archives are manga.
func ContentTypeForExtension(ext string) (ContentType, bool) {
	ft, ok := FileTypeForExtension(ext)
	if !ok {
		return "", false
	}
	if ft == FileTypeEpub {
		return ContentTypeBook, true
	}
	return ContentTypeManga, true
}

// NewBook builds a pending Book for a detected file. The ID is assigned by
// the store on create.
func NewBook(path, title string) (*Book, bool) {
	ext := filepath.Ext(path)
	ft, ok := FileTypeForExtension(ext)
	if !ok {
		return nil, false
	}
	ct, _ := ContentTypeForExtension(ext)

	b := &Book{
		FilePath:    path,
		Filename:    filepath.Base(path),
		Extension:   strings.ToLower(ext),
		ContentType: ct,
		FileType:    ft,
		Status:      StatusPending,
	}
	if title != "" {
		b.Title = &title
	}
	b.InitTimestamps()
	return b, true
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (b *Book) InitTimestamps() {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (b *Book) Touch() {
	b.UpdatedAt = time.Now()
}

// HasCover reports whether a cover file has been persisted for this book.
func (b *Book) HasCover() bool {
	return b.CoverPath != nil && *b.CoverPath != ""
}

// DisplayTitle returns the title, or the filename when no title is known.
func (b *Book) DisplayTitle() string {
	if b.Title != nil && *b.Title != "" {
		return *b.Title
	}
	return b.Filename
}

// IsPending reports whether the book has not finished the pipeline yet.
func (b *Book) IsPending() bool {
	return b.Status == StatusPending
}

// IsQuarantined reports whether the book landed in quarantine.
func (b *Book) IsQuarantined() bool {
	return b.Status == StatusQuarantine
}
