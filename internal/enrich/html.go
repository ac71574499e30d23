package enrich

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/metadata"
)

// htmlTagPattern detects common HTML tags in description fields. OPF and
// catalog descriptions frequently arrive as markup.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// sanitizeDescription converts an HTML description to Markdown, keeping
// plain text untouched. A failed conversion falls back to tag stripping
// rather than storing markup on the row.
func sanitizeDescription(s string) string {
	if s == "" || !containsHTML(s) {
		return strings.TrimSpace(s)
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return metadata.StripHTML(s)
	}
	return strings.TrimSpace(markdown)
}
