// Package models defines the documents, extracted contents, upload batches and search types.
package models

import "time"

// Content types recorded for extracted text.
const (
	ContentTypeText = "text"
	ContentTypeOCR  = "ocr"
)

// Document is an uploaded file owned by a company.
// IsProcessed is true exactly when a non-empty DocumentContent exists for it.
type Document struct {
	ID               string    `json:"id" db:"id"`
	Filename         string    `json:"filename" db:"filename"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	FilePath         string    `json:"-" db:"file_path"`
	FileType         string    `json:"file_type" db:"file_type"`
	FileSize         int64     `json:"file_size" db:"file_size"`
	PageCount        int       `json:"page_count,omitempty" db:"page_count"`
	CompanyID        int64     `json:"company_id" db:"company_id"`
	UploadedBy       int64     `json:"uploaded_by" db:"uploaded_by"`
	IsProcessed      bool      `json:"is_processed" db:"is_processed"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// DocumentContent is the text extracted from a Document.
type DocumentContent struct {
	ID          string    `json:"id" db:"id"`
	DocumentID  string    `json:"document_id" db:"document_id"`
	Content     string    `json:"content" db:"content"`
	ContentType string    `json:"content_type" db:"content_type"`
	PageNumber  int       `json:"page_number" db:"page_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DocumentStats summarizes a company's documents.
type DocumentStats struct {
	TotalDocuments     int64 `json:"total_documents"`
	ProcessedDocuments int64 `json:"processed_documents"`
	PendingDocuments   int64 `json:"pending_documents"`
	DiskUsageBytes     int64 `json:"disk_usage_bytes"`
}
