package enrich

import (
	"context"
	"strconv"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mal"
)

// malAdapter fronts the MyAnimeList v2 API, second in the manga chain.
type malAdapter struct {
	*adapterCore
	client *mal.Client
}

func (a *malAdapter) Source() string { return mal.Source }

func (a *malAdapter) Enrich(ctx context.Context, book *domain.Book) Attempt {
	if book.ContentType != domain.ContentTypeManga {
		return Attempt{Source: a.Source(), Error: notMangaError}
	}
	a.progress(book.ID, events.StepSearchStarted(a.Source()), nil)

	cleaned := CleanTitle(book.DisplayTitle())
	results, err := a.client.SearchManga(ctx, cleaned)
	if err != nil {
		return a.failed(book.ID, a.Source(), err)
	}

	best, score := bestMALManga(results, cleaned)
	if best == nil {
		return a.noMatch(book.ID, a.Source())
	}
	a.matchFound(book.ID, a.Source(), map[string]any{
		"title": best.Title,
		"score": score,
	})

	patch := nonOverwritingPatch(book, malMetadata(best))
	a.attachCover(ctx, book, patch, best.CoverURL(), a.Source(), false)

	return a.complete(ctx, book, patch, a.Source(), strconv.Itoa(best.ID))
}

// bestMALManga rewards candidates that are actual manga and carry a
// synopsis and art, since MAL mixes light novels and one-shots into
// search results.
func bestMALManga(results []mal.Manga, cleaned string) (*mal.Manga, float64) {
	var best *mal.Manga
	bestScore := 0.0
	for i := range results {
		m := &results[i]
		score := mangaTitleWeight * bestVariantSim(cleaned, m.TitleVariants())
		if m.MediaType == "manga" {
			score += 10
		}
		if m.Synopsis != "" {
			score += 5
		}
		if m.MainPicture != nil {
			score += 5
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	if best == nil || bestScore < mangaMatchThreshold {
		return nil, 0
	}
	return best, bestScore
}

func malMetadata(m *mal.Manga) *domain.Metadata {
	meta := &domain.Metadata{Genres: m.GenreNames()}
	if m.Title != "" {
		meta.Title = domain.Ptr(m.Title)
	}
	if author := m.Author(); author != "" {
		meta.Author = domain.Ptr(author)
	}
	if m.Synopsis != "" {
		meta.Description = domain.Ptr(metadata.StripHTML(m.Synopsis))
	}
	if date := m.StartDateISO(); date != "" {
		meta.PublicationDate = domain.Ptr(date)
	}
	return meta
}
