package enrich

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/genre"
	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile/comic"
	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile/epub"
)

// localSource tags rows whose metadata came out of the file itself.
const localSource = "local"

// localExtractor pulls embedded metadata and cover art out of the book
// file before any external source is consulted.
type localExtractor struct {
	*adapterCore
	processor *images.Processor
}

// Extract runs the format extractor for the book's file and persists
// whatever it recovered as one patch. Embedded metadata beats the
// filename heuristics the row was created with, so extracted fields
// overwrite. Failures are logged and reported as "nothing extracted";
// the pipeline carries on to the external sources either way.
func (e *localExtractor) Extract(ctx context.Context, book *domain.Book) bool {
	extraction, err := extractFile(book.FilePath)
	if err != nil {
		e.logger.Warn("local extraction failed",
			"book_id", book.ID,
			"file", book.FilePath,
			"error", err,
		)
		return false
	}
	if extraction == nil || !extraction.Success() {
		return false
	}

	patch := &domain.BookPatch{}
	if extraction.MetadataExtracted {
		patch = localMetadataPatch(extraction.Metadata)
		e.progress(book.ID, events.StepMetadataExtracted, map[string]any{
			"fieldsUpdated": patch.Fields(),
		})
	}

	if extraction.CoverExtracted {
		saved, err := e.processor.SaveCover(ctx, book.ID, extraction.Cover)
		if err != nil {
			e.logger.Warn("cover save failed",
				"book_id", book.ID,
				"error", err,
			)
		} else {
			patch.CoverPath = &saved.Path
			if saved.BlurHash != "" {
				patch.CoverBlurHash = &saved.BlurHash
			}
			e.progress(book.ID, events.StepCoverExtracted, map[string]any{
				"coverPath": saved.Path,
			})
		}
	}

	if !patch.IsEmpty() {
		if _, err := e.store.ApplyMetadata(ctx, book.ID, patch, localSource, ""); err != nil {
			e.logger.Error("persisting extracted metadata failed",
				"book_id", book.ID,
				"error", err,
			)
			return false
		}
	}

	e.progress(book.ID, events.StepExtractionComplete, map[string]any{
		"metadataExtracted": extraction.MetadataExtracted,
		"coverExtracted":    extraction.CoverExtracted,
	})
	return true
}

// extractFile dispatches on the file extension. Unknown extensions come
// back empty rather than as an error; the processor already validated
// the format.
func extractFile(path string) (*bookfile.Extraction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return epub.Extract(path)
	case ".cbz":
		return comic.ExtractCBZ(path)
	case ".cbr":
		return comic.ExtractCBR(path)
	default:
		return &bookfile.Extraction{}, nil
	}
}

// localMetadataPatch converts extractor output into a patch. Every
// recovered field is set unconditionally.
func localMetadataPatch(meta *bookfile.Metadata) *domain.BookPatch {
	patch := &domain.BookPatch{}
	if meta == nil {
		return patch
	}
	if meta.Title != "" {
		patch.Title = domain.Ptr(meta.Title)
	}
	if meta.Author != "" {
		patch.Author = domain.Ptr(meta.Author)
	}
	if meta.Description != "" {
		patch.Description = domain.Ptr(meta.Description)
	}
	if meta.Publisher != "" {
		patch.Publisher = domain.Ptr(meta.Publisher)
	}
	if meta.Language != "" {
		patch.Language = domain.Ptr(meta.Language)
	}
	if meta.ISBN != "" {
		patch.ISBN = domain.Ptr(meta.ISBN)
	}
	if meta.PublicationDate != "" {
		patch.PublicationDate = domain.Ptr(meta.PublicationDate)
	}
	if meta.Series != "" {
		patch.Series = domain.Ptr(meta.Series)
	}
	if meta.Volume != nil {
		patch.Volume = meta.Volume
	}
	if genres := genre.Clean(meta.Genres, 0); len(genres) > 0 {
		patch.Genres = genres
	}
	return patch
}
