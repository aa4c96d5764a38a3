// Package extract classifies uploaded files by extension and extracts plain text
// from PDF, DOCX, spreadsheet, image (OCR) and plain text files.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Strategy extracts plain text from the file at path.
// It returns an empty string, not an error, when the file is readable but holds no text.
type Strategy interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractionError reports a strategy failure for one file.
type ExtractionError struct {
	Tag  Tag
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s %s: %v", e.Tag, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// readFile reads path after checking ctx, so a cancelled batch stops before heavy parsing.
func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}

// joinLines joins non-blank parts with newlines and trims the result.
func joinLines(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
