package store

import "strings"

const (
	excerptBefore = 50
	excerptLength = 200
)

// extractExcerpt returns a window of content around the first occurrence of
// any query token (case-insensitive): up to 50 characters before the hit,
// 200 characters long, with a "..." suffix when the window ends before the
// content does. Without a hit it falls back to the leading 200 characters.
func extractExcerpt(content, query string) string {
	lowerContent := strings.ToLower(content)

	hit := -1
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if idx := strings.Index(lowerContent, token); idx >= 0 && (hit < 0 || idx < hit) {
			hit = idx
		}
	}

	start := 0
	if hit > excerptBefore {
		start = hit - excerptBefore
	}

	end := start + excerptLength
	if end >= len(content) {
		return content[start:]
	}
	return content[start:end] + "..."
}
