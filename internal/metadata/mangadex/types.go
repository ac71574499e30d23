package mangadex

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// validUUID reports whether s parses as a canonical UUID.
func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// LocalizedString is a language-keyed map of translations. English wins;
// otherwise the lexicographically smallest language key keeps the pick
// deterministic.
type LocalizedString map[string]string

// Preferred returns the English value when present, else the value under
// the smallest key, else "".
func (l LocalizedString) Preferred() string {
	if len(l) == 0 {
		return ""
	}
	if v, ok := l["en"]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

// values returns every non-empty translation, English first, the rest in
// key order.
func (l LocalizedString) values() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	if v := l["en"]; v != "" {
		out = append(out, v)
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		if k != "en" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			out = append(out, l[k])
		}
	}
	return out
}

// Manga is one manga entity from the MangaDex API, with reference
// expansion for authors and cover art.
type Manga struct {
	ID            string         `json:"id"`
	Attributes    Attributes     `json:"attributes"`
	Relationships []Relationship `json:"relationships"`
}

// Attributes carries the metadata block of a manga.
type Attributes struct {
	Title       LocalizedString   `json:"title"`
	AltTitles   []LocalizedString `json:"altTitles"`
	Description LocalizedString   `json:"description"`
	Year        int               `json:"year"`
	Tags        []Tag             `json:"tags"`
}

// Tag is one taxonomy tag; Group distinguishes genres from themes and
// formats.
type Tag struct {
	ID         string `json:"id"`
	Attributes struct {
		Name  LocalizedString `json:"name"`
		Group string          `json:"group"`
	} `json:"attributes"`
}

// Relationship links a manga to another entity. Attributes are only
// populated for types requested via reference expansion.
type Relationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name     string `json:"name"`
		FileName string `json:"fileName"`
	} `json:"attributes"`
}

// Title returns the preferred localization of the main title.
func (m *Manga) Title() string {
	return m.Attributes.Title.Preferred()
}

// TitleVariants returns every localization of the main title followed by
// every localization of each alternative title.
func (m *Manga) TitleVariants() []string {
	variants := m.Attributes.Title.values()
	for _, alt := range m.Attributes.AltTitles {
		variants = append(variants, alt.values()...)
	}
	return variants
}

// Description returns the preferred localization of the description.
func (m *Manga) Description() string {
	return m.Attributes.Description.Preferred()
}

// Author returns the expanded author relationship's name, falling back to
// the artist. Returns "" when neither was expanded.
func (m *Manga) Author() string {
	var artist string
	for _, rel := range m.Relationships {
		switch rel.Type {
		case "author":
			if rel.Attributes.Name != "" {
				return rel.Attributes.Name
			}
		case "artist":
			if artist == "" {
				artist = rel.Attributes.Name
			}
		}
	}
	return artist
}

// CoverFileName returns the expanded cover_art relationship's file name,
// or "" when absent. Any non-UUID relationship id is rejected here so a
// malformed row can never reach URL construction.
func (m *Manga) CoverFileName() string {
	for _, rel := range m.Relationships {
		if rel.Type != "cover_art" || rel.Attributes.FileName == "" {
			continue
		}
		if !validUUID(rel.ID) {
			continue
		}
		return rel.Attributes.FileName
	}
	return ""
}

// GenreTags returns the preferred names of tags in the genre group.
func (m *Manga) GenreTags() []string {
	var genres []string
	for _, tag := range m.Attributes.Tags {
		if tag.Attributes.Group != "genre" {
			continue
		}
		if name := tag.Attributes.Name.Preferred(); name != "" {
			genres = append(genres, name)
		}
	}
	return genres
}

// HasTags reports whether the manga carries any tags at all.
func (m *Manga) HasTags() bool {
	return len(m.Attributes.Tags) > 0
}

// PublicationISO renders the publication year as YYYY-01-01, or "" when
// the year is unknown.
func (m *Manga) PublicationISO() string {
	if m.Attributes.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-01-01", m.Attributes.Year)
}
