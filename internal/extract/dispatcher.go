package extract

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// OutcomeKind is the result class of one extraction attempt.
type OutcomeKind int

const (
	// OutcomeEmpty: no strategy applies, or the strategy found no text.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeExtracted: the strategy produced non-blank text.
	OutcomeExtracted
	// OutcomeFailed: the strategy returned an error or panicked.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Outcome is the immutable result of dispatching one file.
// Text is set only for OutcomeExtracted and Err only for OutcomeFailed.
type Outcome struct {
	Kind OutcomeKind
	Tag  Tag
	Text string
	Err  error
}

// Strategies holds one strategy per extractable tag.
type Strategies struct {
	PDF         Strategy
	DOCX        Strategy
	Spreadsheet Strategy
	Image       Strategy
	PlainText   Strategy
}

// DefaultStrategies returns the built-in strategies, with OCR done by ocr.
func DefaultStrategies(ocr *ImageStrategy) Strategies {
	return Strategies{
		PDF:         PDFStrategy{},
		DOCX:        DOCXStrategy{},
		Spreadsheet: SpreadsheetStrategy{},
		Image:       ocr,
		PlainText:   PlainTextStrategy{},
	}
}

func (s Strategies) forTag(tag Tag) Strategy {
	switch tag {
	case TagPDF:
		return s.PDF
	case TagDOCX:
		return s.DOCX
	case TagSpreadsheet:
		return s.Spreadsheet
	case TagImage:
		return s.Image
	case TagPlainText:
		return s.PlainText
	default:
		return nil
	}
}

// Dispatcher selects a strategy by extension and runs it.
// Dispatch never returns an error; failures become OutcomeFailed.
type Dispatcher struct {
	strategies Strategies
}

// NewDispatcher returns a dispatcher over s. Every field of s must hold a non-nil strategy.
func NewDispatcher(s Strategies) (*Dispatcher, error) {
	for _, tag := range []Tag{TagPDF, TagDOCX, TagSpreadsheet, TagImage, TagPlainText} {
		if isNilStrategy(s.forTag(tag)) {
			return nil, fmt.Errorf("no strategy for %s", tag)
		}
	}
	return &Dispatcher{strategies: s}, nil
}

// isNilStrategy reports whether s is nil or an interface holding a nil pointer.
func isNilStrategy(s Strategy) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Dispatch extracts text from the file at path, choosing the strategy from ext.
func (d *Dispatcher) Dispatch(ctx context.Context, path, ext string) Outcome {
	tag := Classify(ext)
	if tag == TagUnsupported {
		return Outcome{Kind: OutcomeEmpty, Tag: tag}
	}

	text, err := d.run(ctx, tag, path)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Tag: tag, Err: &ExtractionError{Tag: tag, Path: path, Err: err}}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Kind: OutcomeEmpty, Tag: tag}
	}
	return Outcome{Kind: OutcomeExtracted, Tag: tag, Text: text}
}

func (d *Dispatcher) run(ctx context.Context, tag Tag, path string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("panic: %v", rec)
		}
	}()
	s := d.strategies.forTag(tag)
	if s == nil {
		return "", errors.New("no strategy")
	}
	return s.Extract(ctx, path)
}
