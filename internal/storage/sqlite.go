package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docvault/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_type TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		page_count INTEGER NOT NULL DEFAULT 0,
		company_id INTEGER NOT NULL,
		uploaded_by INTEGER NOT NULL,
		is_processed BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_company_created ON documents(company_id, created_at);

	CREATE TABLE IF NOT EXISTS document_contents (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT 'text',
		page_number INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts doc and its optional content in one transaction.
// IDs are generated when empty; a content row with blank text is rejected with ErrEmptyContent.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document, content *models.DocumentContent) error {
	if content != nil && strings.TrimSpace(content.Content) == "" {
		return ErrEmptyContent
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.IsProcessed = content != nil
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, filename, original_filename, file_path, file_type, file_size,
		 page_count, company_id, uploaded_by, is_processed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.OriginalFilename, doc.FilePath, doc.FileType, doc.FileSize,
		doc.PageCount, doc.CompanyID, doc.UploadedBy, doc.IsProcessed, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if content != nil {
		if content.ID == "" {
			content.ID = uuid.New().String()
		}
		if content.ContentType == "" {
			content.ContentType = models.ContentTypeText
		}
		if content.PageNumber == 0 {
			content.PageNumber = 1
		}
		content.DocumentID = doc.ID
		content.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO document_contents (id, document_id, content, content_type, page_number, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			content.ID, content.DocumentID, content.Content, content.ContentType, content.PageNumber, content.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}
	return nil
}

const documentColumns = `id, filename, original_filename, file_path, file_type, file_size,
	page_count, company_id, uploaded_by, is_processed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(&doc.ID, &doc.Filename, &doc.OriginalFilename, &doc.FilePath, &doc.FileType, &doc.FileSize,
		&doc.PageCount, &doc.CompanyID, &doc.UploadedBy, &doc.IsProcessed, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument returns a company's document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, companyID int64, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND company_id = ?`, id, companyID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetContent returns the extracted content of a company's document.
func (s *SQLiteStorage) GetContent(ctx context.Context, companyID int64, documentID string) (*models.DocumentContent, error) {
	var c models.DocumentContent
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.document_id, c.content, c.content_type, c.page_number, c.created_at
		 FROM document_contents c JOIN documents d ON d.id = c.document_id
		 WHERE c.document_id = ? AND d.company_id = ?`, documentID, companyID,
	).Scan(&c.ID, &c.DocumentID, &c.Content, &c.ContentType, &c.PageNumber, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content for %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListDocuments returns a company's documents, newest first.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, companyID int64, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE company_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		companyID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a company's document and its content.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, companyID int64, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_contents WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return tx.Commit()
}

// CountDocuments returns the number of a company's documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context, companyID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE company_id = ?`, companyID).Scan(&count)
	return count, err
}

// CountProcessed returns the number of a company's documents with extracted content.
func (s *SQLiteStorage) CountProcessed(ctx context.Context, companyID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE company_id = ? AND is_processed = 1`, companyID,
	).Scan(&count)
	return count, err
}

// TotalFileSize returns the summed size of a company's stored files.
func (s *SQLiteStorage) TotalFileSize(ctx context.Context, companyID int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(file_size), 0) FROM documents WHERE company_id = ?`, companyID,
	).Scan(&total)
	return total, err
}

// Stats returns document counts and disk usage for a company.
func Stats(ctx context.Context, s Storage, companyID int64) (*models.DocumentStats, error) {
	total, err := s.CountDocuments(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	processed, err := s.CountProcessed(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("count processed: %w", err)
	}
	size, err := s.TotalFileSize(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("sum file sizes: %w", err)
	}
	return &models.DocumentStats{
		TotalDocuments:     total,
		ProcessedDocuments: processed,
		PendingDocuments:   total - processed,
		DiskUsageBytes:     size,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
