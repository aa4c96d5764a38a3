package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// PlainTextStrategy reads a file as UTF-8 text.
type PlainTextStrategy struct{}

func (PlainTextStrategy) Extract(ctx context.Context, path string) (string, error) {
	content, err := readFile(ctx, path)
	if err != nil {
		return "", err
	}
	return extractPlain(content), nil
}

// extractPlain decodes content as UTF-8, dropping invalid byte sequences.
func extractPlain(content []byte) string {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}
