package anilist

import (
	"fmt"
	"strings"
)

// Media is one manga entry from the AniList catalog.
type Media struct {
	ID           int        `json:"id"`
	Format       string     `json:"format"`
	AverageScore int        `json:"averageScore"`
	Title        MediaTitle `json:"title"`
	Synonyms     []string   `json:"synonyms"`
	Description  string     `json:"description"`
	Genres       []string   `json:"genres"`
	StartDate    Date       `json:"startDate"`
	CoverImage   CoverImage `json:"coverImage"`
	Staff        Staff      `json:"staff"`
}

// MediaTitle carries the three title renditions AniList tracks.
type MediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// Date is AniList's fuzzy date; zero components mean unknown.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// ISO renders the date as YYYY-MM-DD, defaulting unknown month and day
// to 01. Returns "" when even the year is unknown.
func (d Date) ISO() string {
	if d.Year == 0 {
		return ""
	}
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, month, day)
}

// CoverImage lists the cover renditions AniList serves.
type CoverImage struct {
	ExtraLarge string `json:"extraLarge"`
	Large      string `json:"large"`
	Medium     string `json:"medium"`
}

// Staff is the connection wrapper around credited staff.
type Staff struct {
	Edges []StaffEdge `json:"edges"`
}

// StaffEdge is one staff credit with its role label.
type StaffEdge struct {
	Role string `json:"role"`
	Node struct {
		Name struct {
			Full string `json:"full"`
		} `json:"name"`
	} `json:"node"`
}

// TitleVariants returns every known title form: main, English, native,
// then synonyms. Empty strings are dropped.
func (m *Media) TitleVariants() []string {
	variants := make([]string, 0, 3+len(m.Synonyms))
	for _, t := range []string{m.Title.Romaji, m.Title.English, m.Title.Native} {
		if t != "" {
			variants = append(variants, t)
		}
	}
	for _, t := range m.Synonyms {
		if t != "" {
			variants = append(variants, t)
		}
	}
	return variants
}

// MainTitle prefers the romaji title, then English, then native.
func (m *Media) MainTitle() string {
	for _, t := range []string{m.Title.Romaji, m.Title.English, m.Title.Native} {
		if t != "" {
			return t
		}
	}
	return ""
}

// Author picks the staff credit whose role mentions the story, falling
// back to the first credit. Returns "" when no staff are listed.
func (m *Media) Author() string {
	if len(m.Staff.Edges) == 0 {
		return ""
	}
	for _, edge := range m.Staff.Edges {
		if strings.Contains(strings.ToLower(edge.Role), "story") {
			return edge.Node.Name.Full
		}
	}
	return m.Staff.Edges[0].Node.Name.Full
}

// CoverURL returns the largest available cover rendition, or "".
func (m *Media) CoverURL() string {
	for _, u := range []string{m.CoverImage.ExtraLarge, m.CoverImage.Large, m.CoverImage.Medium} {
		if u != "" {
			return u
		}
	}
	return ""
}
