package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/anilist"
	"github.com/inkshelfapp/inkshelf-server/internal/metadata/openlibrary"
)

func TestNonOverwritingPatch(t *testing.T) {
	t.Run("fills only missing fields", func(t *testing.T) {
		book := &domain.Book{
			Title:  domain.Ptr("Berserk"),
			Author: domain.Ptr("Kentarou Miura"),
		}
		meta := &domain.Metadata{
			Title:       domain.Ptr("Berserk Deluxe"),
			Author:      domain.Ptr("Someone Else"),
			Description: domain.Ptr("Guts swings a big sword."),
			Publisher:   domain.Ptr("Dark Horse"),
		}

		patch := nonOverwritingPatch(book, meta)

		assert.Nil(t, patch.Title, "existing title must survive")
		assert.Nil(t, patch.Author, "existing author must survive")
		require.NotNil(t, patch.Description)
		assert.Equal(t, "Guts swings a big sword.", *patch.Description)
		require.NotNil(t, patch.Publisher)
		assert.Equal(t, "Dark Horse", *patch.Publisher)
	})

	t.Run("genres only when the book has none", func(t *testing.T) {
		withGenres := &domain.Book{Genres: []string{"Action"}}
		patch := nonOverwritingPatch(withGenres, &domain.Metadata{Genres: []string{"Horror"}})
		assert.Nil(t, patch.Genres)

		empty := &domain.Book{}
		patch = nonOverwritingPatch(empty, &domain.Metadata{Genres: []string{"Horror", "Seinen"}})
		assert.Equal(t, []string{"Horror", "Seinen"}, patch.Genres)
	})

	t.Run("genres capped per source", func(t *testing.T) {
		meta := &domain.Metadata{
			Genres: []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven"},
		}
		patch := nonOverwritingPatch(&domain.Book{}, meta)
		assert.Len(t, patch.Genres, 5)
	})

	t.Run("empty metadata yields empty patch", func(t *testing.T) {
		patch := nonOverwritingPatch(&domain.Book{}, &domain.Metadata{})
		assert.True(t, patch.IsEmpty())
	})
}

func TestDateHelpers(t *testing.T) {
	assert.Equal(t, "1990-01-01", yearISO(1990))
	assert.Equal(t, "", yearISO(0))
	assert.Equal(t, "", yearISO(-3))

	assert.Equal(t, "", padDateISO(""))
	assert.Equal(t, "1974-01-01", padDateISO("1974"))
	assert.Equal(t, "1974-06-01", padDateISO("1974-06"))
	assert.Equal(t, "1974-06-15", padDateISO("1974-06-15"))
}

func TestOpenLibraryMetadata(t *testing.T) {
	doc := &openlibrary.Doc{
		Key:              "/works/OL27448W",
		Title:            "The Hobbit",
		AuthorName:       []string{"J.R.R. Tolkien", "Translator Person"},
		FirstPublishYear: 1937,
		ISBN:             []string{"0261102214", "9780261102217"},
		Publisher:        []string{"Allen & Unwin", "Houghton Mifflin"},
		Language:         []string{"eng"},
		Subject:          []string{"Fantasy", "Dragons"},
	}

	meta := openLibraryMetadata(doc)

	require.NotNil(t, meta.Title)
	assert.Equal(t, "The Hobbit", *meta.Title)
	require.NotNil(t, meta.Author)
	assert.Equal(t, "J.R.R. Tolkien", *meta.Author)
	require.NotNil(t, meta.ISBN)
	assert.Equal(t, "9780261102217", *meta.ISBN, "ISBN-13 preferred")
	require.NotNil(t, meta.Publisher)
	assert.Equal(t, "Allen & Unwin", *meta.Publisher)
	require.NotNil(t, meta.PublicationDate)
	assert.Equal(t, "1937-01-01", *meta.PublicationDate)
	require.NotNil(t, meta.Language)
	assert.Equal(t, []string{"Fantasy", "Dragons"}, meta.Genres)
}

func TestBestOpenLibraryDoc(t *testing.T) {
	book := &domain.Book{
		ContentType: domain.ContentTypeBook,
		Title:       domain.Ptr("The Hobbit"),
		Author:      domain.Ptr("J.R.R. Tolkien"),
	}
	docs := []openlibrary.Doc{
		{Title: "Completely Unrelated Cookbook", AuthorName: []string{"A. Chef"}},
		{Title: "The Hobbit", AuthorName: []string{"J.R.R. Tolkien"}},
	}

	best, score := bestOpenLibraryDoc(docs, book)
	require.NotNil(t, best)
	assert.Equal(t, "The Hobbit", best.Title)
	assert.GreaterOrEqual(t, score, float64(ebookMatchThreshold))

	t.Run("below threshold yields nil", func(t *testing.T) {
		weak := []openlibrary.Doc{{Title: "zzz qqq", AuthorName: []string{"xxx"}}}
		best, _ := bestOpenLibraryDoc(weak, book)
		assert.Nil(t, best)
	})

	t.Run("no docs yields nil", func(t *testing.T) {
		best, _ := bestOpenLibraryDoc(nil, book)
		assert.Nil(t, best)
	})
}

func TestBestAniListMedia(t *testing.T) {
	media := []anilist.Media{
		{
			ID:     1,
			Format: "NOVEL",
			Title:  anilist.MediaTitle{Romaji: "Berserk Gaiden"},
		},
		{
			ID:           30002,
			Format:       "MANGA",
			AverageScore: 93,
			Title:        anilist.MediaTitle{Romaji: "Berserk", English: "Berserk"},
		},
	}

	best, score := bestAniListMedia(media, "Berserk")
	require.NotNil(t, best)
	assert.Equal(t, 30002, best.ID)

	// 80 for the exact title, +10 for MANGA, +9.3 for the average score.
	assert.InDelta(t, 99.3, score, 1e-9)

	t.Run("nothing above threshold", func(t *testing.T) {
		best, _ := bestAniListMedia([]anilist.Media{{Title: anilist.MediaTitle{Romaji: "zzz"}}}, "Berserk")
		assert.Nil(t, best)
	})
}
