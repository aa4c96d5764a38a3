package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/internal/storage"
	"github.com/hyperjump/docvault/internal/upload"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	// multipartMemory is how much of a multipart body is kept in memory before spilling to temp files.
	multipartMemory = 32 << 20
)

type uploadResponse struct {
	Message string               `json:"message"`
	Files   []*models.Document   `json:"files"`
	Failed  []models.FileFailure `json:"failed,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.config != nil && s.config.MaxUploadBytes() > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes())
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	files := make([]models.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, models.UploadedFile{Filename: fh.Filename, Open: openPart(fh)})
	}

	ctx := r.Context()
	result, err := s.uploads.ProcessBatch(ctx, files, companyID(ctx), userID(ctx))
	if errors.Is(err, upload.ErrNoFiles) {
		s.respondError(w, http.StatusBadRequest, "no files provided")
		return
	}
	if err != nil {
		s.logger.Error("Upload batch failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	s.respondJSON(w, http.StatusCreated, uploadResponse{
		Message: fmt.Sprintf("%d file(s) uploaded", len(result.Accepted)),
		Files:   result.Accepted,
		Failed:  result.Failed,
	})
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pagination(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid offset or limit")
		return
	}
	ctx := r.Context()
	docs, err := s.storage.ListDocuments(ctx, companyID(ctx), offset, limit)
	if err != nil {
		s.logger.Error("List documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func pagination(r *http.Request) (offset, limit int, ok bool) {
	q := r.URL.Query()
	offset, limit = 0, defaultListLimit
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		limit = min(n, maxListLimit)
	}
	return offset, limit, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := s.storage.GetDocument(ctx, companyID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		s.storageError(w, "get document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	content, err := s.storage.GetContent(ctx, companyID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		s.storageError(w, "get content", err)
		return
	}
	s.respondJSON(w, http.StatusOK, content)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	company := companyID(ctx)
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(ctx, company, id)
	if err != nil {
		s.storageError(w, "delete document", err)
		return
	}
	if err := s.storage.DeleteDocument(ctx, company, id); err != nil {
		s.storageError(w, "delete document", err)
		return
	}
	if err := s.blobs.Delete(doc.FilePath); err != nil {
		s.logger.Warn("Failed to remove stored file", zap.String("id", id), zap.Error(err))
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to remove index entry", zap.String("id", id), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := storage.Stats(ctx, s.storage, companyID(ctx))
	if err != nil {
		s.logger.Error("Stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	query := models.SearchQuery{
		Query:        q.Get("q"),
		CompanyID:    companyID(ctx),
		FuzzyEnabled: q.Get("fuzzy") == "true",
	}
	if v := q.Get("limit"); v != "" {
		query.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		query.Offset, _ = strconv.Atoi(v)
	}
	response, err := s.search.Search(ctx, &query)
	if errors.Is(err, models.ErrEmptyQuery) {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if err != nil {
		s.logger.Error("Search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storageError maps ErrNotFound to 404 and anything else to a logged 500.
func (s *Server) storageError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Error("Storage error", zap.String("op", op), zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
