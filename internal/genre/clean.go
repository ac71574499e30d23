package genre

import "strings"

// MaxFromSource bounds how many genres a single external source may
// contribute to a book.
const MaxFromSource = 5

// Clean trims, de-duplicates, and bounds a list of genre values while
// preserving the first-seen display form. Identity is slug-based, so
// "Sci-Fi" and "sci fi" count as one genre. A max of zero or less means
// unbounded.
func Clean(values []string, max int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		slug := Slugify(v)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, v)
		if max > 0 && len(out) >= max {
			break
		}
	}

	return out
}
