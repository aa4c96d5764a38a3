// Package server provides the HTTP API for docvault.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/config"
	"github.com/hyperjump/docvault/internal/keyword"
	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/internal/storage"
)

// BatchProcessor runs the upload pipeline for a batch of files.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, files []models.UploadedFile, companyID, uploaderID int64) (*models.BatchResult, error)
}

// Searcher answers tenant-scoped content queries.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
}

// Blobs removes stored upload bytes.
type Blobs interface {
	Delete(path string) error
}

// Server is the HTTP server for the docvault API.
type Server struct {
	uploads BatchProcessor
	search  Searcher
	storage storage.Storage
	blobs   Blobs
	index   keyword.KeywordIndex // optional
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. index may be nil.
func NewServer(
	uploads BatchProcessor,
	search Searcher,
	store storage.Storage,
	blobs Blobs,
	index keyword.KeywordIndex,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		uploads: uploads,
		search:  search,
		storage: store,
		blobs:   blobs,
		index:   index,
		config:  cfg,
		logger:  logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	// OCR of a large batch can take minutes.
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tenant)
		r.Get("/search", s.handleSearch)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", s.handleUpload)
			r.Get("/", s.handleListDocuments)
			r.Get("/stats", s.handleStats)
			r.Get("/{id}", s.handleGetDocument)
			r.Get("/{id}/content", s.handleGetContent)
			r.Delete("/{id}", s.handleDeleteDocument)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
