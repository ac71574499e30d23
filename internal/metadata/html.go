package metadata

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens source-provided rich text (AniList descriptions, MAL
// synopses) to plain text: <br/> variants become newlines, remaining tags
// are dropped, and entities (&amp; &lt; &gt; &quot; &#039; &nbsp; and
// friends) are decoded.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	// Line breaks must survive the tag strip.
	s = brTagRegex.ReplaceAllString(s, "\n")

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// The parser is error-tolerant; this path is for pathological input.
		return stripHTMLFallback(s)
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return tidyWhitespace(buf.String())
}

// extractText recursively collects text content, separating block
// elements with newlines.
func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			buf.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			buf.WriteString("\n")
		}
	}
}

var (
	brTagRegex    = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	htmlTagRegex  = regexp.MustCompile(`<[^>]*>`)
	horizontalWS  = regexp.MustCompile(`[ \t\r\x{00a0}]+`)
	paddedNewline = regexp.MustCompile(` ?\n ?`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)
)

// stripHTMLFallback strips tags by regex when parsing fails.
func stripHTMLFallback(s string) string {
	s = htmlTagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return tidyWhitespace(s)
}

// tidyWhitespace collapses horizontal whitespace (including the
// non-breaking spaces &nbsp; decodes to), trims space around newlines,
// and caps blank runs at one empty line.
func tidyWhitespace(s string) string {
	s = horizontalWS.ReplaceAllString(s, " ")
	s = paddedNewline.ReplaceAllString(s, "\n")
	s = manyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
