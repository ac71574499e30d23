package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMatch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Berserk", "berserk"},
		{"strips punctuation and spaces", "The Lord of the Rings!", "thelordoftherings"},
		{"folds accents", "Café Société", "cafesociete"},
		{"keeps digits", "Fahrenheit 451", "fahrenheit451"},
		{"keeps cjk letters", "ナルト", "ナルト"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeMatch(tt.in))
		})
	}
}

func TestCharJaccard(t *testing.T) {
	assert.Equal(t, 1.0, charJaccard("Berserk", "berserk!"))
	assert.Equal(t, 0.0, charJaccard("", "anything"))
	assert.Equal(t, 0.0, charJaccard("anything", ""))
	assert.Equal(t, 0.0, charJaccard("abc", "xyz"))

	// {a,b,c} vs {a,b,d}: intersection 2, union 4.
	assert.InDelta(t, 0.5, charJaccard("abc", "abd"), 1e-9)
}

func TestWordJaccard(t *testing.T) {
	assert.Equal(t, 1.0, wordJaccard("Clean Code", "clean CODE"))
	assert.Equal(t, 0.0, wordJaccard("", "clean code"))

	// Shared {clean, code}, union has 3 extra subtitle words.
	got := wordJaccard("Clean Code", "Clean Code A Handbook of")
	assert.InDelta(t, 2.0/5.0, got, 1e-9)
}

func TestEbookScore(t *testing.T) {
	assert.Equal(t, 100.0, ebookScore(1, 1))
	assert.Equal(t, 60.0, ebookScore(1, 0))
	assert.Equal(t, 40.0, ebookScore(0, 1))

	// A perfect title alone clears the ebook threshold, a perfect author
	// alone does not.
	assert.GreaterOrEqual(t, ebookScore(1, 0), float64(ebookMatchThreshold))
	assert.Less(t, ebookScore(0, 1), float64(ebookMatchThreshold))
}

func TestBestAuthorSim(t *testing.T) {
	t.Run("empty book author scores zero", func(t *testing.T) {
		got := bestAuthorSim("", []string{"J.R.R. Tolkien"}, charJaccard)
		assert.Equal(t, 0.0, got)
	})

	t.Run("picks the closest candidate", func(t *testing.T) {
		got := bestAuthorSim("Tolkien", []string{"Someone Else", "J.R.R. Tolkien"}, charJaccard)
		assert.Greater(t, got, 0.9)
	})

	t.Run("no candidates scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, bestAuthorSim("Tolkien", nil, charJaccard))
	})
}

func TestBestVariantSim(t *testing.T) {
	variants := []string{"Kenpuu Denki Berserk", "Berserk", "ベルセルク"}
	assert.Equal(t, 1.0, bestVariantSim("Berserk", variants))
	assert.Equal(t, 0.0, bestVariantSim("Berserk", nil))
}
