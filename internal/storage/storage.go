// Package storage persists documents and their extracted content, and stores uploaded bytes on disk.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/hyperjump/docvault/internal/models"
)

var (
	// ErrNotFound is returned when a document or content row does not exist for the company.
	ErrNotFound = errors.New("not found")
	// ErrEmptyContent is returned when a content row with blank text is staged.
	ErrEmptyContent = errors.New("content text is empty")
	// ErrExists is returned when a blob with the same storage name already exists.
	ErrExists = errors.New("file already exists")
)

// Storage defines document and content persistence operations.
// All reads and deletes are scoped to a company.
type Storage interface {
	// CreateDocument inserts doc and, when content is non-nil, its content in one transaction.
	// doc.IsProcessed is set from whether content is present.
	CreateDocument(ctx context.Context, doc *models.Document, content *models.DocumentContent) error
	GetDocument(ctx context.Context, companyID int64, id string) (*models.Document, error)
	GetContent(ctx context.Context, companyID int64, documentID string) (*models.DocumentContent, error)
	ListDocuments(ctx context.Context, companyID int64, offset, limit int) ([]*models.Document, error)
	// DeleteDocument removes a document and its content in one transaction.
	DeleteDocument(ctx context.Context, companyID int64, id string) error

	// Stats
	CountDocuments(ctx context.Context, companyID int64) (int64, error)
	CountProcessed(ctx context.Context, companyID int64) (int64, error)
	// TotalFileSize returns the summed size of a company's stored files.
	TotalFileSize(ctx context.Context, companyID int64) (int64, error)

	Close() error
}

// BlobStore stores uploaded file bytes.
type BlobStore interface {
	Save(r io.Reader, name string) (path string, size int64, err error)
	Exists(path string) bool
	Delete(path string) error
}
