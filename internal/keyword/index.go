// Package keyword provides full-text search over extracted document content.
package keyword

import (
	"context"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FilenameBoost multiplies the score contribution of matches in the original filename.
	// Values > 1 make filename matches rank higher (e.g. 2.0).
	FilenameBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when FuzzyEnabled is true.
	Fuzziness int
	// Highlight requests content fragments around the matched terms.
	Highlight bool
}

// Entry is the searchable projection of a processed document.
type Entry struct {
	ID        string
	CompanyID int64
	Filename  string
	Content   string
}

// KeywordIndex defines keyword search operations. Search only returns entries of companyID.
type KeywordIndex interface {
	Index(ctx context.Context, entry *Entry) error
	Search(ctx context.Context, companyID int64, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID        string
	Score     float64
	Fragments []string
}
