package googlebooks

import (
	"regexp"
	"strings"
)

// zoomPattern matches the zoom parameter in volume image links. Values
// above 1 return upscaled previews, so every link is rewritten to zoom=1.
var zoomPattern = regexp.MustCompile(`zoom=\d+`)

// CoverURL picks the largest usable image link and normalizes it: force
// https, drop the page-curl effect, pin zoom to 1. Returns "" when the
// volume carries no image links.
func CoverURL(v *Volume) string {
	if v == nil || v.VolumeInfo.ImageLinks == nil {
		return ""
	}

	links := v.VolumeInfo.ImageLinks
	for _, raw := range []string{
		links.ExtraLarge,
		links.Large,
		links.Medium,
		links.Thumbnail,
		links.SmallThumbnail,
	} {
		if raw != "" {
			return normalizeCoverURL(raw)
		}
	}
	return ""
}

func normalizeCoverURL(raw string) string {
	if after, ok := strings.CutPrefix(raw, "http://"); ok {
		raw = "https://" + after
	}
	raw = strings.ReplaceAll(raw, "&edge=curl", "")
	return zoomPattern.ReplaceAllString(raw, "zoom=1")
}
