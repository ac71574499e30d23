package enrich

import (
	"context"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/events"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
)

// openLibraryAdapter fronts the OpenLibrary search API for ebooks. It is
// the only adapter allowed to replace an existing cover, and only when
// the one on disk is small enough to count as low quality.
type openLibraryAdapter struct {
	*adapterCore
	client *openlibrary.Client
}

func (a *openLibraryAdapter) Source() string { return openlibrary.Source }

func (a *openLibraryAdapter) Enrich(ctx context.Context, book *domain.Book) Attempt {
	if book.ContentType != domain.ContentTypeBook {
		return Attempt{Source: a.Source(), Error: notABookError}
	}
	a.progress(book.ID, events.StepSearchStarted(a.Source()), nil)

	docs, err := a.searchDocs(ctx, book)
	if err != nil {
		return a.failed(book.ID, a.Source(), err)
	}

	doc, score := bestOpenLibraryDoc(docs, book)
	if doc == nil {
		return a.noMatch(book.ID, a.Source())
	}
	a.matchFound(book.ID, a.Source(), map[string]any{
		"title": doc.Title,
		"score": score,
	})

	patch := nonOverwritingPatch(book, openLibraryMetadata(doc))
	a.attachCover(ctx, book, patch, a.client.CoverURL(doc), a.Source(), true)

	return a.complete(ctx, book, patch, a.Source(), doc.Key)
}

// searchDocs prefers the ISBN lookup and falls through to title+author
// when the book has no ISBN or the ISBN query comes back empty.
func (a *openLibraryAdapter) searchDocs(ctx context.Context, book *domain.Book) ([]openlibrary.Doc, error) {
	if isbn := bookISBN(book); isbn != "" {
		docs, err := a.client.SearchByISBN(ctx, isbn)
		if err != nil {
			return nil, err
		}
		if len(docs) > 0 {
			return docs, nil
		}
	}
	return a.client.SearchByTitle(ctx, book.DisplayTitle(), bookAuthor(book))
}

func bestOpenLibraryDoc(docs []openlibrary.Doc, book *domain.Book) (*openlibrary.Doc, float64) {
	title := book.DisplayTitle()
	author := bookAuthor(book)

	var best *openlibrary.Doc
	bestScore := 0.0
	for i := range docs {
		doc := &docs[i]
		score := ebookScore(
			charJaccard(title, doc.Title),
			bestAuthorSim(author, doc.AuthorName, charJaccard),
		)
		if score > bestScore {
			best, bestScore = doc, score
		}
	}
	if best == nil || bestScore < ebookMatchThreshold {
		return nil, 0
	}
	return best, bestScore
}

func openLibraryMetadata(doc *openlibrary.Doc) *domain.Metadata {
	meta := &domain.Metadata{Genres: doc.Subject}
	if doc.Title != "" {
		meta.Title = domain.Ptr(doc.Title)
	}
	if author := doc.Author(); author != "" {
		meta.Author = domain.Ptr(author)
	}
	if publisher := doc.FirstPublisher(); publisher != "" {
		meta.Publisher = domain.Ptr(publisher)
	}
	if len(doc.Language) > 0 {
		if lang := normalizeLanguage(doc.Language[0]); lang != "" {
			meta.Language = domain.Ptr(lang)
		}
	}
	if isbn := doc.BestISBN(); isbn != "" {
		meta.ISBN = domain.Ptr(isbn)
	}
	if date := yearISO(doc.FirstPublishYear); date != "" {
		meta.PublicationDate = domain.Ptr(date)
	}
	return meta
}
