// Package search answers content queries for a company from the keyword index and the document store.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/keyword"
	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/internal/storage"
)

// maxSnippetLen caps the highlighted fragment returned per hit.
const maxSnippetLen = 240

// Engine runs tenant-scoped keyword search.
type Engine struct {
	storage       storage.Storage
	keywordIndex  keyword.KeywordIndex
	filenameBoost float64
	logger        *zap.Logger
}

// NewEngine creates a search engine over the given store and index.
func NewEngine(store storage.Storage, index keyword.KeywordIndex, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		storage:       store,
		keywordIndex:  index,
		filenameBoost: 2.0,
		logger:        logger,
	}
}

// Search validates query and returns matching documents of query.CompanyID, best first.
// When an exact search finds nothing and fuzzy matching was not requested, the search
// is retried with fuzzy matching and the response is marked AutoFuzzy.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	opts := &keyword.SearchOptions{
		FilenameBoost: e.filenameBoost,
		FuzzyEnabled:  query.FuzzyEnabled,
		Highlight:     true,
	}
	want := query.Offset + query.Limit
	hits, err := e.keywordIndex.Search(ctx, query.CompanyID, query.Query, want, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	autoFuzzy := false
	if len(hits) == 0 && !query.FuzzyEnabled {
		opts.FuzzyEnabled = true
		hits, err = e.keywordIndex.Search(ctx, query.CompanyID, query.Query, want, opts)
		if err != nil {
			return nil, fmt.Errorf("fuzzy search failed: %w", err)
		}
		autoFuzzy = len(hits) > 0
	}

	start := query.Offset
	if start > len(hits) {
		start = len(hits)
	}
	paged := hits[start:]

	response := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, len(paged)),
		Total:     len(hits),
		Query:     query.Query,
		AutoFuzzy: autoFuzzy,
	}
	for i, hit := range paged {
		doc, err := e.storage.GetDocument(ctx, query.CompanyID, hit.ID)
		if errors.Is(err, storage.ErrNotFound) {
			// Index entry outlived its document.
			e.logger.Debug("Dropping stale index entry", zap.String("id", hit.ID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", hit.ID, err)
		}
		result := &models.SearchResult{
			Document: doc,
			Score:    hit.Score,
			Rank:     start + i + 1,
		}
		if len(hit.Fragments) > 0 {
			result.Highlights = map[string]string{"content": Highlight(hit.Fragments[0], maxSnippetLen)}
		}
		response.Results = append(response.Results, result)
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}
