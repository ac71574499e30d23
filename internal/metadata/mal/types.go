package mal

import "strings"

// Manga is one manga node from the MyAnimeList v2 API.
type Manga struct {
	ID                int               `json:"id"`
	Title             string            `json:"title"`
	MainPicture       *Picture          `json:"main_picture"`
	AlternativeTitles AlternativeTitles `json:"alternative_titles"`
	StartDate         string            `json:"start_date"`
	Synopsis          string            `json:"synopsis"`
	MediaType         string            `json:"media_type"`
	Genres            []Genre           `json:"genres"`
	Authors           []AuthorEdge      `json:"authors"`
}

// Picture carries the two renditions the API serves.
type Picture struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// AlternativeTitles lists alternate forms of the main title.
type AlternativeTitles struct {
	Synonyms []string `json:"synonyms"`
	En       string   `json:"en"`
	Ja       string   `json:"ja"`
}

// Genre is one genre tag.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AuthorEdge is one author credit with its role label.
type AuthorEdge struct {
	Node AuthorName `json:"node"`
	Role string     `json:"role"`
}

// AuthorName is a credited person, name split by the API.
type AuthorName struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Full joins the split name parts.
func (n AuthorName) Full() string {
	return strings.TrimSpace(strings.TrimSpace(n.FirstName) + " " + strings.TrimSpace(n.LastName))
}

// TitleVariants returns every known title form: main, English, Japanese,
// then synonyms. Empty strings are dropped.
func (m *Manga) TitleVariants() []string {
	variants := make([]string, 0, 3+len(m.AlternativeTitles.Synonyms))
	for _, t := range []string{m.Title, m.AlternativeTitles.En, m.AlternativeTitles.Ja} {
		if t != "" {
			variants = append(variants, t)
		}
	}
	for _, t := range m.AlternativeTitles.Synonyms {
		if t != "" {
			variants = append(variants, t)
		}
	}
	return variants
}

// Author picks the credit whose role mentions the story, falling back to
// the first credit. Returns "" when no authors are listed.
func (m *Manga) Author() string {
	if len(m.Authors) == 0 {
		return ""
	}
	for _, edge := range m.Authors {
		if strings.Contains(strings.ToLower(edge.Role), "story") {
			return edge.Node.Full()
		}
	}
	return m.Authors[0].Node.Full()
}

// CoverURL returns the largest available picture, or "".
func (m *Manga) CoverURL() string {
	if m.MainPicture == nil {
		return ""
	}
	if m.MainPicture.Large != "" {
		return m.MainPicture.Large
	}
	return m.MainPicture.Medium
}

// GenreNames flattens the genre tags.
func (m *Manga) GenreNames() []string {
	if len(m.Genres) == 0 {
		return nil
	}
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		if g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names
}

// StartDateISO pads a partial start_date (YYYY or YYYY-MM) out to
// YYYY-MM-DD, defaulting missing month and day to 01.
func (m *Manga) StartDateISO() string {
	switch parts := strings.Split(m.StartDate, "-"); {
	case m.StartDate == "":
		return ""
	case len(parts) == 1:
		return m.StartDate + "-01-01"
	case len(parts) == 2:
		return m.StartDate + "-01"
	default:
		return m.StartDate
	}
}
