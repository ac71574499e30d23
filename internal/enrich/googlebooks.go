package enrich

import (
	"context"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/googlebooks"
)

// googleBooksAdapter fronts the Google Books volumes API for ebooks.
type googleBooksAdapter struct {
	*adapterCore
	client *googlebooks.Client
}

func (a *googleBooksAdapter) Source() string { return googlebooks.Source }

func (a *googleBooksAdapter) Enrich(ctx context.Context, book *domain.Book) Attempt {
	if book.ContentType != domain.ContentTypeBook {
		return Attempt{Source: a.Source(), Error: notABookError}
	}
	a.progress(book.ID, events.StepSearchStarted(a.Source()), nil)

	volumes, err := a.searchVolumes(ctx, book)
	if err != nil {
		return a.failed(book.ID, a.Source(), err)
	}

	vol, score := bestVolume(volumes, book)
	if vol == nil {
		return a.noMatch(book.ID, a.Source())
	}
	a.matchFound(book.ID, a.Source(), map[string]any{
		"title": vol.VolumeInfo.Title,
		"score": score,
	})

	patch := nonOverwritingPatch(book, googleBooksMetadata(vol))
	a.attachCover(ctx, book, patch, googlebooks.CoverURL(vol), a.Source(), false)

	return a.complete(ctx, book, patch, a.Source(), vol.ID)
}

func (a *googleBooksAdapter) searchVolumes(ctx context.Context, book *domain.Book) ([]googlebooks.Volume, error) {
	if isbn := bookISBN(book); isbn != "" {
		volumes, err := a.client.SearchByISBN(ctx, isbn)
		if err != nil {
			return nil, err
		}
		if len(volumes) > 0 {
			return volumes, nil
		}
	}
	return a.client.SearchByTitle(ctx, book.DisplayTitle(), bookAuthor(book))
}

// bestVolume scores candidates on word overlap. Google Books titles tend
// to carry subtitles and edition noise, so whole words compare better
// than characters here.
func bestVolume(volumes []googlebooks.Volume, book *domain.Book) (*googlebooks.Volume, float64) {
	title := book.DisplayTitle()
	author := bookAuthor(book)

	var best *googlebooks.Volume
	bestScore := 0.0
	for i := range volumes {
		vol := &volumes[i]
		score := ebookScore(
			wordJaccard(title, vol.VolumeInfo.Title),
			bestAuthorSim(author, vol.VolumeInfo.Authors, wordJaccard),
		)
		if score > bestScore {
			best, bestScore = vol, score
		}
	}
	if best == nil || bestScore < ebookMatchThreshold {
		return nil, 0
	}
	return best, bestScore
}

func googleBooksMetadata(vol *googlebooks.Volume) *domain.Metadata {
	info := vol.VolumeInfo
	meta := &domain.Metadata{Genres: info.Categories}
	if info.Title != "" {
		meta.Title = domain.Ptr(info.Title)
	}
	if author := vol.Author(); author != "" {
		meta.Author = domain.Ptr(author)
	}
	if info.Description != "" {
		meta.Description = domain.Ptr(sanitizeDescription(info.Description))
	}
	if info.Publisher != "" {
		meta.Publisher = domain.Ptr(info.Publisher)
	}
	if info.Language != "" {
		if lang := normalizeLanguage(info.Language); lang != "" {
			meta.Language = domain.Ptr(lang)
		}
	}
	if isbn := vol.ISBN(); isbn != "" {
		meta.ISBN = domain.Ptr(isbn)
	}
	if date := padDateISO(info.PublishedDate); date != "" {
		meta.PublicationDate = domain.Ptr(date)
	}
	return meta
}
