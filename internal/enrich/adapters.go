package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/genre"
	"github.com/inkshelfapp/inkshelf-server/internal/media/covers"
	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
	"github.com/inkshelfapp/inkshelf-server/internal/normalize"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
)

// Stable attempt error strings. They end up verbatim inside quarantine
// reasons.
const (
	noMatchError  = "No match found"
	notABookError = "Not a book"
	notMangaError = "Not a manga"
)

// lowQualityCoverBytes is the on-disk size below which an existing cover
// counts as low quality and may be replaced by OpenLibrary's.
const lowQualityCoverBytes = 50_000

// adapterCore carries what every source adapter needs to persist results
// and report progress.
type adapterCore struct {
	store   *store.Store
	emitter events.Emitter
	covers  *covers.Downloader
	images  *images.Storage
	logger  *slog.Logger
}

func (c *adapterCore) progress(bookID int64, step string, data any) {
	c.emitter.Emit(events.NewEnrichmentProgressEvent(bookID, step, data))
}

// failed reports a broken attempt: a progress event plus an Attempt whose
// Error feeds reason synthesis.
func (c *adapterCore) failed(bookID int64, source string, err error) Attempt {
	msg := err.Error()
	c.progress(bookID, events.StepEnrichmentFailed, map[string]string{
		"source": source,
		"error":  msg,
	})
	c.logger.Warn("enrichment attempt failed",
		"book_id", bookID,
		"source", source,
		"error", msg,
	)
	return Attempt{Source: source, Error: msg}
}

// noMatch reports a source that searched and found nothing usable.
func (c *adapterCore) noMatch(bookID int64, source string) Attempt {
	c.progress(bookID, events.StepNoMatch(source), nil)
	return Attempt{Source: source, Error: noMatchError}
}

func (c *adapterCore) matchFound(bookID int64, source string, data any) {
	c.progress(bookID, events.StepMatchFound(source), data)
}

// complete persists the patch with the enriched status and reports
// success. An empty patch still moves the status: the source confirmed
// the book even if every field was already filled.
func (c *adapterCore) complete(ctx context.Context, book *domain.Book, patch *domain.BookPatch, source, externalID string) Attempt {
	status := domain.StatusEnriched
	patch.Status = &status
	fields := patch.Fields()

	if _, err := c.store.ApplyMetadata(ctx, book.ID, patch, source, externalID); err != nil {
		return c.failed(book.ID, source, fmt.Errorf("persist: %w", err))
	}

	c.progress(book.ID, events.StepEnrichmentCompleted, map[string]any{
		"source":        source,
		"fieldsUpdated": fields,
	})
	return Attempt{Source: source, Success: true, FieldsUpdated: fields}
}

// attachCover downloads the candidate cover when the book has none. With
// replaceLowQuality, an existing cover smaller than lowQualityCoverBytes
// is replaced too. Download failures only cost the cover, never the
// attempt.
func (c *adapterCore) attachCover(ctx context.Context, book *domain.Book, patch *domain.BookPatch, coverURL, source string, replaceLowQuality bool) {
	if coverURL == "" {
		return
	}
	if book.HasCover() {
		if !replaceLowQuality {
			return
		}
		size, err := c.images.SizeOf(book.ID)
		if err != nil || size >= lowQualityCoverBytes {
			return
		}
	}

	result, err := c.covers.Download(ctx, book.ID, coverURL, source)
	if err != nil {
		c.logger.Warn("cover download failed",
			"book_id", book.ID,
			"source", source,
			"error", err,
		)
		return
	}
	patch.CoverPath = &result.Path
	if result.BlurHash != "" {
		patch.CoverBlurHash = &result.BlurHash
	}
}

// nonOverwritingPatch keeps only the metadata fields the book is missing.
// Genres count as missing only when the book has none at all, and each
// source contributes at most genre.MaxFromSource of them.
func nonOverwritingPatch(book *domain.Book, meta *domain.Metadata) *domain.BookPatch {
	patch := &domain.BookPatch{}
	if book.Title == nil && meta.Title != nil {
		patch.Title = meta.Title
	}
	if book.Author == nil && meta.Author != nil {
		patch.Author = meta.Author
	}
	if book.Description == nil && meta.Description != nil {
		patch.Description = meta.Description
	}
	if book.Publisher == nil && meta.Publisher != nil {
		patch.Publisher = meta.Publisher
	}
	if book.Language == nil && meta.Language != nil {
		patch.Language = meta.Language
	}
	if book.ISBN == nil && meta.ISBN != nil {
		patch.ISBN = meta.ISBN
	}
	if book.PublicationDate == nil && meta.PublicationDate != nil {
		patch.PublicationDate = meta.PublicationDate
	}
	if book.Series == nil && meta.Series != nil {
		patch.Series = meta.Series
	}
	if book.Volume == nil && meta.Volume != nil {
		patch.Volume = meta.Volume
	}
	if len(book.Genres) == 0 && len(meta.Genres) > 0 {
		if genres := genre.Clean(meta.Genres, genre.MaxFromSource); len(genres) > 0 {
			patch.Genres = genres
		}
	}
	return patch
}

// bookAuthor returns the author on record, or "".
func bookAuthor(book *domain.Book) string {
	if book.Author == nil {
		return ""
	}
	return *book.Author
}

// bookISBN returns the ISBN on record, or "".
func bookISBN(book *domain.Book) string {
	if book.ISBN == nil {
		return ""
	}
	return *book.ISBN
}

// normalizeLanguage reduces a language value to an ISO 639-1 code where
// recognized, keeping the raw value otherwise.
func normalizeLanguage(raw string) string {
	if code := normalize.LanguageCode(raw); code != "" {
		return code
	}
	return strings.TrimSpace(raw)
}

// yearISO renders a bare year as YYYY-01-01, or "" for zero.
func yearISO(year int) string {
	if year <= 0 {
		return ""
	}
	return fmt.Sprintf("%04d-01-01", year)
}

// padDateISO pads a partial YYYY or YYYY-MM date out to YYYY-MM-DD,
// defaulting missing parts to 01. Full dates pass through.
func padDateISO(date string) string {
	switch parts := strings.Split(date, "-"); {
	case date == "":
		return ""
	case len(parts) == 1:
		return date + "-01-01"
	case len(parts) == 2:
		return date + "-01"
	default:
		return date
	}
}
