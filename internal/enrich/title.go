package enrich

import (
	"regexp"
	"strings"
)

// Search-query noise stripped from manga titles before hitting the
// catalogs: volume markers, French tome markers, bracketed release tags.
var (
	volumeMarker   = regexp.MustCompile(`(?i)\bv(?:ol(?:ume)?)?\.?\s*\d+`)
	tomeMarker     = regexp.MustCompile(`(?i)\b(?:tome|t)\s*\d+`)
	bracketSegment = regexp.MustCompile(`\[[^\]]*\]`)
	parenSegment   = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// CleanTitle strips volume markers and bracketed tags from a manga title
// so catalog searches see the series name. Cleaning is idempotent. When
// cleaning would leave nothing, the original title is returned: a bad
// query beats an empty one.
func CleanTitle(title string) string {
	cleaned := bracketSegment.ReplaceAllString(title, " ")
	cleaned = parenSegment.ReplaceAllString(cleaned, " ")
	cleaned = volumeMarker.ReplaceAllString(cleaned, " ")
	cleaned = tomeMarker.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespaceRuns.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}
