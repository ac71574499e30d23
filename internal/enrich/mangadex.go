package enrich

import (
	"context"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/mangadex"
)

// mangaDexAdapter fronts the MangaDex API, last in the manga chain.
type mangaDexAdapter struct {
	*adapterCore
	client *mangadex.Client
}

func (a *mangaDexAdapter) Source() string { return mangadex.Source }

func (a *mangaDexAdapter) Enrich(ctx context.Context, book *domain.Book) Attempt {
	if book.ContentType != domain.ContentTypeManga {
		return Attempt{Source: a.Source(), Error: notMangaError}
	}
	a.progress(book.ID, events.StepSearchStarted(a.Source()), nil)

	cleaned := CleanTitle(book.DisplayTitle())
	results, err := a.client.SearchManga(ctx, cleaned)
	if err != nil {
		return a.failed(book.ID, a.Source(), err)
	}

	best, score := bestMangaDexManga(results, cleaned)
	if best == nil {
		return a.noMatch(book.ID, a.Source())
	}
	a.matchFound(book.ID, a.Source(), map[string]any{
		"title": best.Title(),
		"score": score,
	})

	patch := nonOverwritingPatch(book, mangaDexMetadata(best))
	a.attachCover(ctx, book, patch, a.coverURL(best), a.Source(), false)

	return a.complete(ctx, book, patch, a.Source(), best.ID)
}

func (a *mangaDexAdapter) coverURL(m *mangadex.Manga) string {
	fileName := m.CoverFileName()
	if fileName == "" {
		return ""
	}
	return a.client.CoverURL(m.ID, fileName)
}

// bestMangaDexManga rewards completeness: a small bonus for each of
// description, cover art, author, and tags.
func bestMangaDexManga(results []mangadex.Manga, cleaned string) (*mangadex.Manga, float64) {
	var best *mangadex.Manga
	bestScore := 0.0
	for i := range results {
		m := &results[i]
		score := mangaTitleWeight * bestVariantSim(cleaned, m.TitleVariants())
		if m.Description() != "" {
			score += 5
		}
		if m.CoverFileName() != "" {
			score += 5
		}
		if m.Author() != "" {
			score += 5
		}
		if m.HasTags() {
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

func mangaDexMetadata(m *mangadex.Manga) *domain.Metadata {
	meta := &domain.Metadata{Genres: m.GenreTags()}
	if title := m.Title(); title != "" {
		meta.Title = domain.Ptr(title)
	}
	if author := m.Author(); author != "" {
		meta.Author = domain.Ptr(author)
	}
	if desc := m.Description(); desc != "" {
		meta.Description = domain.Ptr(sanitizeDescription(desc))
	}
	if date := m.PublicationISO(); date != "" {
		meta.PublicationDate = domain.Ptr(date)
	}
	return meta
}
