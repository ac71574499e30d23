package enrich

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Match selection thresholds. Candidates scoring below stay unmatched.
const (
	ebookMatchThreshold = 50
	mangaMatchThreshold = 40

	// mangaTitleWeight scales title similarity for the manga sources;
	// their per-source bonuses stack on top.
	mangaTitleWeight = 80
)

// normalizeMatch prepares a string for similarity comparison: NFKD fold,
// lowercase, keep only letters and digits. Combining marks fall out of the
// letter filter, so accents fold away.
func normalizeMatch(s string) string {
	s = strings.ToLower(norm.NFKD.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeWords splits a string into normalized words: NFKD fold,
// lowercase, non-alphanumerics become separators.
func normalizeWords(s string) []string {
	s = strings.ToLower(norm.NFKD.String(s))
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Fields(mapped)
}

// charJaccard is the Jaccard index of the two strings' rune sets after
// normalization. Zero when either side normalizes to nothing.
func charJaccard(a, b string) float64 {
	as := runeSet(normalizeMatch(a))
	bs := runeSet(normalizeMatch(b))
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	intersection := 0
	for r := range as {
		if bs[r] {
			intersection++
		}
	}
	union := len(as) + len(bs) - intersection
	return float64(intersection) / float64(union)
}

// wordJaccard is the Jaccard index of the two strings' word sets.
func wordJaccard(a, b string) float64 {
	as := stringSet(normalizeWords(a))
	bs := stringSet(normalizeWords(b))
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	intersection := 0
	for w := range as {
		if bs[w] {
			intersection++
		}
	}
	union := len(as) + len(bs) - intersection
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

func stringSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// ebookScore weighs title similarity against the best author similarity:
// 60 points for a perfect title, 40 for a perfect author.
func ebookScore(titleSim, bestAuthorSim float64) float64 {
	return 60*titleSim + 40*bestAuthorSim
}

// bestAuthorSim returns the best similarity between the book's author and
// any candidate author, using the given similarity function. Zero when the
// book has no author on record.
func bestAuthorSim(bookAuthor string, candidates []string, sim func(a, b string) float64) float64 {
	if bookAuthor == "" {
		return 0
	}
	best := 0.0
	for _, candidate := range candidates {
		if s := sim(bookAuthor, candidate); s > best {
			best = s
		}
	}
	return best
}

// bestVariantSim returns the best character similarity between the wanted
// title and any of the candidate's title variants.
func bestVariantSim(want string, variants []string) float64 {
	best := 0.0
	for _, v := range variants {
		if s := charJaccard(want, v); s > best {
			best = s
		}
	}
	return best
}
