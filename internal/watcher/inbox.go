package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/models"
)

// BatchProcessor runs the upload pipeline for a batch of files.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, files []models.UploadedFile, companyID, uploaderID int64) (*models.BatchResult, error)
}

// Inbox ingests inbox files for one company and uploader.
// A file is removed from the inbox once it has been accepted; failed files stay for a retry.
type Inbox struct {
	processor BatchProcessor
	companyID int64
	userID    int64
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewInbox returns an Inbox that uploads files as userID into companyID.
func NewInbox(processor BatchProcessor, companyID, userID int64, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		processor: processor,
		companyID: companyID,
		userID:    userID,
		logger:    logger,
		inFlight:  make(map[string]bool),
	}
}

// Ingest uploads the file at path. Concurrent calls for the same path are collapsed.
func (in *Inbox) Ingest(ctx context.Context, path string) {
	in.mu.Lock()
	if in.inFlight[path] {
		in.mu.Unlock()
		return
	}
	in.inFlight[path] = true
	in.mu.Unlock()
	defer func() {
		in.mu.Lock()
		delete(in.inFlight, path)
		in.mu.Unlock()
	}()

	if _, err := os.Stat(path); err != nil {
		// Already ingested by an earlier event.
		return
	}
	file := models.UploadedFile{
		Filename: filepath.Base(path),
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
	}
	result, err := in.processor.ProcessBatch(ctx, []models.UploadedFile{file}, in.companyID, in.userID)
	if err != nil {
		in.logger.Error("Inbox ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	for _, f := range result.Failed {
		in.logger.Error("Inbox file rejected", zap.String("path", path), zap.String("error", f.Error))
	}
	if len(result.Accepted) == 0 {
		return
	}
	doc := result.Accepted[0]
	in.logger.Info("Inbox file ingested",
		zap.String("path", path),
		zap.String("id", doc.ID),
		zap.Bool("processed", doc.IsProcessed),
	)
	if err := os.Remove(path); err != nil {
		in.logger.Warn("Failed to remove ingested inbox file", zap.String("path", path), zap.Error(err))
	}
}
