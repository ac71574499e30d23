package epub

import (
	"archive/zip"
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

// opfPackage mirrors the subset of the OPF package document we read.
// Dublin Core elements are matched by local name, so both dc: and bare
// prefixes resolve.
type opfPackage struct {
	Metadata opfMetadata `xml:"metadata"`
	Manifest []opfItem   `xml:"manifest>item"`
}

type opfMetadata struct {
	Titles      []string        `xml:"title"`
	Creators    []opfCreator    `xml:"creator"`
	Description string          `xml:"description"`
	Publisher   string          `xml:"publisher"`
	Language    string          `xml:"language"`
	Dates       []string        `xml:"date"`
	Identifiers []opfIdentifier `xml:"identifier"`
	Subjects    []string        `xml:"subject"`
	Metas       []opfMeta       `xml:"meta"`
}

type opfCreator struct {
	Role string `xml:"role,attr"`
	Name string `xml:",chardata"`
}

type opfIdentifier struct {
	Scheme string `xml:"scheme,attr"`
	Value  string `xml:",chardata"`
}

type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// parseOPF decodes the package document from an archive entry.
func parseOPF(entry *zip.File) (*opfPackage, error) {
	data, err := readEntry(entry)
	if err != nil {
		return nil, err
	}

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// metadataFromOPF maps the package document onto extraction metadata.
func metadataFromOPF(pkg *opfPackage) *bookfile.Metadata {
	meta := &bookfile.Metadata{}

	for _, title := range pkg.Metadata.Titles {
		if t := strings.TrimSpace(title); t != "" {
			meta.Title = t
			break
		}
	}

	// Creators with a role keep only actual authors; unset roles count too.
	var authors []string
	for _, creator := range pkg.Metadata.Creators {
		if creator.Role != "" && !strings.EqualFold(creator.Role, "aut") {
			continue
		}
		if name := strings.TrimSpace(creator.Name); name != "" {
			authors = append(authors, name)
		}
	}
	meta.Author = strings.Join(authors, ", ")

	meta.Description = strings.TrimSpace(pkg.Metadata.Description)
	meta.Publisher = strings.TrimSpace(pkg.Metadata.Publisher)
	meta.Language = strings.TrimSpace(pkg.Metadata.Language)

	for _, date := range pkg.Metadata.Dates {
		if d := strings.TrimSpace(date); d != "" {
			meta.PublicationDate = d
			break
		}
	}

	meta.ISBN = extractISBN(pkg.Metadata.Identifiers)

	for _, subject := range pkg.Metadata.Subjects {
		if s := strings.TrimSpace(subject); s != "" {
			meta.Genres = append(meta.Genres, s)
		}
	}

	return meta
}

var (
	// isbnPrefixPattern matches urn:isbn:, isbn: and "ISBN " prefixed
	// values followed by a 10-17 character span of digits and hyphens.
	isbnPrefixPattern = regexp.MustCompile(`(?i)\b(?:urn:)?isbn:?\s*([0-9][0-9-]{9,16})`)

	// isbn13Pattern matches a standalone 13-digit ISBN.
	isbn13Pattern = regexp.MustCompile(`\b97[89][0-9]{10}\b`)

	isbn13Digits = regexp.MustCompile(`^[0-9]{13}$`)
	isbn10Digits = regexp.MustCompile(`^[0-9]{9}[0-9Xx]$`)
)

// extractISBN scans identifiers in document order and returns the first
// value that passes one of three acceptance rules: an isbn scheme attribute
// with a clean 10/13-digit value, an explicit isbn prefix, or a standalone
// 13-digit number in the 978/979 range.
func extractISBN(identifiers []opfIdentifier) string {
	for _, id := range identifiers {
		value := strings.TrimSpace(id.Value)
		if value == "" {
			continue
		}

		if strings.Contains(strings.ToLower(id.Scheme), "isbn") {
			if isbn := normalizeISBN(value); isbn != "" {
				return isbn
			}
		}

		if m := isbnPrefixPattern.FindStringSubmatch(value); m != nil {
			if isbn := normalizeISBN(m[1]); isbn != "" {
				return isbn
			}
		}

		if m := isbn13Pattern.FindString(value); m != "" {
			return m
		}
	}
	return ""
}

// normalizeISBN strips separators and accepts only 10 or 13 digit forms.
func normalizeISBN(raw string) string {
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(raw)
	if isbn13Digits.MatchString(cleaned) || isbn10Digits.MatchString(cleaned) {
		return strings.ToUpper(cleaned)
	}
	return ""
}
