package comic

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// comicInfo mirrors the ComicInfo.xml fields we consume. Numeric fields
// stay strings because real-world files carry values like "Special
// Edition" in Volume; parsing happens during mapping.
type comicInfo struct {
	Title       string `xml:"Title"`
	Series      string `xml:"Series"`
	Number      string `xml:"Number"`
	Volume      string `xml:"Volume"`
	Summary     string `xml:"Summary"`
	Writer      string `xml:"Writer"`
	Publisher   string `xml:"Publisher"`
	Genre       string `xml:"Genre"`
	LanguageISO string `xml:"LanguageISO"`
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
}

func parseComicInfo(data []byte) (*comicInfo, error) {
	var info comicInfo
	if err := xml.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// metadata maps ComicInfo fields onto extraction metadata.
func (ci *comicInfo) metadata() *bookfile.Metadata {
	meta := &bookfile.Metadata{
		Title:       strings.TrimSpace(ci.Title),
		Series:      strings.TrimSpace(ci.Series),
		Author:      strings.TrimSpace(ci.Writer),
		Description: strings.TrimSpace(ci.Summary),
		Publisher:   strings.TrimSpace(ci.Publisher),
		Language:    strings.TrimSpace(ci.LanguageISO),
	}

	// Volume wins over Number when both are numeric.
	if v := parseDecimal(ci.Volume); v != nil {
		meta.Volume = v
	} else if n := parseDecimal(ci.Number); n != nil {
		meta.Volume = n
	}

	meta.Genres = splitGenres(ci.Genre)
	meta.PublicationDate = publicationDate(ci.Year, ci.Month, ci.Day)

	return meta
}

// parseDecimal parses a base-10 integer, returning nil for anything else.
func parseDecimal(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// splitGenres splits the comma-separated Genre field into trimmed,
// non-empty values.
func splitGenres(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if g := strings.TrimSpace(p); g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) == 0 {
		return nil
	}
	return genres
}

// publicationDate renders YYYY-MM-DD. Missing or out-of-range month and
// day default to 01; without a year there is no date.
func publicationDate(year, month, day string) string {
	y := parseDecimal(year)
	if y == nil || *y <= 0 {
		return ""
	}

	m, d := 1, 1
	if v := parseDecimal(month); v != nil && *v >= 1 && *v <= 12 {
		m = *v
	}
	if v := parseDecimal(day); v != nil && *v >= 1 && *v <= 31 {
		d = *v
	}

	return fmt.Sprintf("%04d-%02d-%02d", *y, m, d)
}
