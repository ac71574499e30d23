package enrich

import (
	"context"
	"strconv"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
)

// aniListAdapter fronts the AniList GraphQL API, first in the manga chain.
type aniListAdapter struct {
	*adapterCore
	client *anilist.Client
}

func (a *aniListAdapter) Source() string { return anilist.Source }

func (a *aniListAdapter) Enrich(ctx context.Context, book *domain.Book) Attempt {
	if book.ContentType != domain.ContentTypeManga {
		return Attempt{Source: a.Source(), Error: notMangaError}
	}
	a.progress(book.ID, events.StepSearchStarted(a.Source()), nil)

	cleaned := CleanTitle(book.DisplayTitle())
	media, err := a.client.SearchManga(ctx, cleaned)
	if err != nil {
		return a.failed(book.ID, a.Source(), err)
	}

	best, score := bestAniListMedia(media, cleaned)
	if best == nil {
		return a.noMatch(book.ID, a.Source())
	}
	a.matchFound(book.ID, a.Source(), map[string]any{
		"title": best.MainTitle(),
		"score": score,
	})

	patch := nonOverwritingPatch(book, aniListMetadata(best))
	a.attachCover(ctx, book, patch, best.CoverURL(), a.Source(), false)

	return a.complete(ctx, book, patch, a.Source(), strconv.Itoa(best.ID))
}

// bestAniListMedia scores title overlap across every variant plus a
// format bonus and the community score as a tiebreaker.
func bestAniListMedia(media []anilist.Media, cleaned string) (*anilist.Media, float64) {
	var best *anilist.Media
	bestScore := 0.0
	for i := range media {
		m := &media[i]
		score := mangaTitleWeight * bestVariantSim(cleaned, m.TitleVariants())
		if m.Format == "MANGA" {
			score += 10
		}
		score += float64(m.AverageScore) / 10
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	if best == nil || bestScore < mangaMatchThreshold {
		return nil, 0
	}
	return best, bestScore
}

func aniListMetadata(m *anilist.Media) *domain.Metadata {
	meta := &domain.Metadata{Genres: m.Genres}
	if title := m.MainTitle(); title != "" {
		meta.Title = domain.Ptr(title)
	}
	if author := m.Author(); author != "" {
		meta.Author = domain.Ptr(author)
	}
	if m.Description != "" {
		meta.Description = domain.Ptr(metadata.StripHTML(m.Description))
	}
	if date := m.StartDate.ISO(); date != "" {
		meta.PublicationDate = domain.Ptr(date)
	}
	return meta
}
