// Package upload stores a batch of uploaded files, extracts their text and records them,
// one file at a time and independently of each other.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/extract"
	"github.com/hyperjump/docvault/internal/fileid"
	"github.com/hyperjump/docvault/internal/keyword"
	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/internal/storage"
)

// ErrNoFiles is returned when a batch contains no files at all.
var ErrNoFiles = errors.New("no files provided")

// DefaultAllowedExtensions is the upload gate. It is broader than what can be
// extracted: .doc is stored but yields no text.
var DefaultAllowedExtensions = []string{"txt", "pdf", "png", "jpg", "jpeg", "gif", "doc", "docx", "xls", "xlsx"}

// Dispatcher turns a stored file into an extraction outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, path, ext string) extract.Outcome
}

// DocumentStore creates a document and its optional content atomically.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document, content *models.DocumentContent) error
}

// PageCounter returns the page count of a PDF.
type PageCounter func(path string) (int, error)

// Coordinator runs the per-file upload pipeline: save, extract, persist.
type Coordinator struct {
	blobs       storage.BlobStore
	documents   DocumentStore
	dispatcher  Dispatcher
	allowed     map[string]bool
	index       keyword.KeywordIndex // optional
	pageCounter PageCounter          // optional
	logger      *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for per-file events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIndex makes accepted documents with content searchable.
func WithIndex(idx keyword.KeywordIndex) Option {
	return func(c *Coordinator) { c.index = idx }
}

// WithPageCounter records the page count of uploaded PDFs.
func WithPageCounter(pc PageCounter) Option {
	return func(c *Coordinator) { c.pageCounter = pc }
}

// WithAllowedExtensions replaces the upload gate. Extensions are matched case-insensitively.
func WithAllowedExtensions(exts []string) Option {
	return func(c *Coordinator) {
		if len(exts) == 0 {
			return
		}
		c.allowed = extensionSet(exts)
	}
}

// NewCoordinator returns a coordinator that stores bytes in blobs and records in documents.
func NewCoordinator(blobs storage.BlobStore, documents DocumentStore, dispatcher Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		blobs:      blobs,
		documents:  documents,
		dispatcher: dispatcher,
		allowed:    extensionSet(DefaultAllowedExtensions),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[extract.NormalizeExtension(ext)] = true
	}
	return set
}

// Allowed reports whether filename passes the upload gate: it must have an
// extension and the extension must be allowed.
func (c *Coordinator) Allowed(filename string) bool {
	if !strings.Contains(filename, ".") {
		return false
	}
	return c.allowed[fileid.Extension(filename)]
}

// ProcessBatch handles files in order. Files with an empty name or a disallowed
// extension are skipped silently. A file that cannot be stored or recorded is
// reported in Failed and the batch continues; extraction problems never fail a file.
// If ctx is cancelled the remaining files are not processed and the partial result
// is returned with the context error.
func (c *Coordinator) ProcessBatch(ctx context.Context, files []models.UploadedFile, companyID, uploaderID int64) (*models.BatchResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	result := &models.BatchResult{Accepted: make([]*models.Document, 0, len(files))}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch interrupted: %w", err)
		}
		if f.Filename == "" || !c.Allowed(f.Filename) {
			c.logger.Debug("Skipping file", zap.String("filename", f.Filename))
			continue
		}
		doc, err := c.processFile(ctx, f, companyID, uploaderID)
		if err != nil {
			c.logger.Error("Upload failed", zap.String("filename", f.Filename), zap.Error(err))
			result.Failed = append(result.Failed, models.FileFailure{Filename: f.Filename, Error: err.Error()})
			continue
		}
		result.Accepted = append(result.Accepted, doc)
	}
	return result, nil
}

func (c *Coordinator) processFile(ctx context.Context, f models.UploadedFile, companyID, uploaderID int64) (*models.Document, error) {
	safeName := fileid.SafeName(f.Filename)
	ext := fileid.Extension(safeName)
	storageName := fileid.StorageName(safeName)

	stored, err := c.save(f, storageName)
	if err != nil {
		return nil, err
	}
	stored.OriginalName = safeName
	stored.Extension = ext

	doc := &models.Document{
		Filename:         stored.StorageName,
		OriginalFilename: stored.OriginalName,
		FilePath:         stored.Path,
		FileType:         stored.Extension,
		FileSize:         stored.Size,
		CompanyID:        companyID,
		UploadedBy:       uploaderID,
	}
	if c.pageCounter != nil && extract.Classify(ext) == extract.TagPDF {
		if n, err := c.pageCounter(stored.Path); err == nil {
			doc.PageCount = n
		} else {
			c.logger.Debug("Page count unavailable", zap.String("filename", storageName), zap.Error(err))
		}
	}

	content := c.extract(ctx, stored)

	if err := c.documents.CreateDocument(ctx, doc, content); err != nil {
		if delErr := c.blobs.Delete(stored.Path); delErr != nil {
			c.logger.Warn("Failed to remove stored file", zap.String("path", stored.Path), zap.Error(delErr))
		}
		return nil, fmt.Errorf("persist document: %w", err)
	}

	c.logger.Debug("File uploaded",
		zap.String("id", doc.ID),
		zap.String("filename", doc.OriginalFilename),
		zap.Bool("processed", doc.IsProcessed),
	)
	if content != nil && c.index != nil {
		entry := &keyword.Entry{ID: doc.ID, CompanyID: companyID, Filename: doc.OriginalFilename, Content: content.Content}
		if err := c.index.Index(ctx, entry); err != nil {
			c.logger.Warn("Failed to index document", zap.String("id", doc.ID), zap.Error(err))
		}
	}
	return doc, nil
}

func (c *Coordinator) save(f models.UploadedFile, storageName string) (*models.StoredFile, error) {
	if f.Open == nil {
		return nil, errors.New("file has no content")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	path, size, err := c.blobs.Save(rc, storageName)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	return &models.StoredFile{Path: path, StorageName: storageName, Size: size}, nil
}

// extract dispatches the stored file and returns the content to persist, or nil.
func (c *Coordinator) extract(ctx context.Context, stored *models.StoredFile) *models.DocumentContent {
	outcome := c.dispatcher.Dispatch(ctx, stored.Path, stored.Extension)
	switch outcome.Kind {
	case extract.OutcomeExtracted:
		contentType := models.ContentTypeText
		if outcome.Tag == extract.TagImage {
			contentType = models.ContentTypeOCR
		}
		return &models.DocumentContent{Content: outcome.Text, ContentType: contentType, PageNumber: 1}
	case extract.OutcomeFailed:
		c.logger.Warn("Text extraction failed",
			zap.String("filename", stored.StorageName),
			zap.Stringer("tag", outcome.Tag),
			zap.Error(outcome.Err),
		)
	default:
		c.logger.Debug("No text extracted",
			zap.String("filename", stored.StorageName),
			zap.Stringer("tag", outcome.Tag),
		)
	}
	return nil
}

// OpenBytes returns an Open func over b, for callers that already hold the content.
func OpenBytes(b []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}
