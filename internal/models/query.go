package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned by Validate when the query text is blank.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery is a content search request scoped to one company.
type SearchQuery struct {
	Query        string `json:"query"`
	CompanyID    int64  `json:"company_id"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
	FuzzyEnabled bool   `json:"fuzzy_enabled,omitempty"` // enable fuzzy matching for typo tolerance
}

// Validate ensures the search query has valid fields and sets defaults.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}
