package search

import "unicode/utf8"

// Highlight truncates content to at most maxLen bytes without splitting a UTF-8 sequence.
func Highlight(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
