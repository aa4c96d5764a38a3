package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// bleveDocument is the stored shape of an Entry. Field names follow the json tags.
type bleveDocument struct {
	Company  string `json:"company"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemBleveIndex returns an index held in memory, used by tests and one-off CLI runs.
func NewMemBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): documents mix Turkish and
	// English, and an English stemmer mangles Turkish words.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("filename", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("company", keywordFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// Index adds or replaces the entry.
func (b *BleveIndex) Index(ctx context.Context, entry *Entry) error {
	doc := bleveDocument{
		Company:  strconv.FormatInt(entry.CompanyID, 10),
		Filename: normalizeFilename(entry.Filename),
		Content:  entry.Content,
	}
	if err := b.index.Index(entry.ID, doc); err != nil {
		return fmt.Errorf("index %s: %w", entry.ID, err)
	}
	return nil
}

// Search matches query against content and filename within one company.
func (b *BleveIndex) Search(ctx context.Context, companyID int64, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	filenameBoost := 1.0
	fuzziness := 0
	highlight := false
	if opts != nil {
		if opts.FilenameBoost > 0 {
			filenameBoost = opts.FilenameBoost
		}
		if opts.FuzzyEnabled {
			fuzziness = 1
			if opts.Fuzziness > 0 {
				fuzziness = opts.Fuzziness
			}
		}
		highlight = opts.Highlight
	}

	company := bleve.NewTermQuery(strconv.FormatInt(companyID, 10))
	company.SetField("company")
	text := bleve.NewDisjunctionQuery(
		b.buildFieldQuery(query, "content", fuzziness, 1.0),
		b.buildFieldQuery(query, "filename", fuzziness, filenameBoost),
	)

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(company, text))
	req.Size = limit
	if highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("content")
	}
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score, Fragments: hit.Fragments["content"]}
	}
	return out, nil
}

// normalizeFilename replaces underscores with spaces so "fatura_mart_2024.pdf" is
// searchable as "fatura mart"; the standard analyzer does not split on underscore.
func normalizeFilename(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFieldQuery matches query on field. With fuzziness > 0 every term becomes a
// FuzzyQuery and any of them may match.
func (b *BleveIndex) buildFieldQuery(query, field string, fuzziness int, boost float64) blevequery.Query {
	terms := tokenizeQuery(query)
	if fuzziness == 0 || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a document from the index. Deleting an unknown id is not an error.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
