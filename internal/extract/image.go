package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// OCREngine recognizes text in an image using the given language model
// (tesseract syntax, e.g. "tur+eng").
type OCREngine interface {
	Recognize(ctx context.Context, path, lang string) (string, error)
}

// TesseractEngine runs the tesseract command-line binary.
type TesseractEngine struct {
	Binary  string
	Timeout time.Duration
}

// NewTesseractEngine returns an engine for the binary at path ("tesseract" resolves through PATH).
func NewTesseractEngine(binary string, timeout time.Duration) *TesseractEngine {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractEngine{Binary: binary, Timeout: timeout}
}

func (e *TesseractEngine) Recognize(ctx context.Context, path, lang string) (string, error) {
	if _, err := exec.LookPath(e.Binary); err != nil {
		return "", fmt.Errorf("tesseract not found: %w", err)
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := []string{path, "stdout"}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract -l %s: %w: %s", lang, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ImageStrategy extracts text from raster images with OCR.
// It first tries the combined Language+Fallback model and, if that fails
// (typically because the Language model is not installed), Fallback alone.
type ImageStrategy struct {
	Engine   OCREngine
	Language string
	Fallback string
}

// NewImageStrategy returns an OCR strategy using engine with the given languages.
func NewImageStrategy(engine OCREngine, language, fallback string) *ImageStrategy {
	return &ImageStrategy{Engine: engine, Language: language, Fallback: fallback}
}

func (s *ImageStrategy) Extract(ctx context.Context, path string) (string, error) {
	if s.Engine == nil {
		return "", errors.New("no OCR engine configured")
	}
	var errs []error
	for _, lang := range s.languages() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := s.Engine.Recognize(ctx, path, lang)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		errs = append(errs, err)
	}
	return "", fmt.Errorf("ocr failed: %w", errors.Join(errs...))
}

// languages returns the models to try, in order.
func (s *ImageStrategy) languages() []string {
	switch {
	case s.Language != "" && s.Fallback != "" && s.Language != s.Fallback:
		return []string{s.Language + "+" + s.Fallback, s.Fallback}
	case s.Language != "":
		return []string{s.Language}
	default:
		return []string{s.Fallback}
	}
}
