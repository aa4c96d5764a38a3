package models

// SearchResult is a single content search hit.
type SearchResult struct {
	Document   *Document         `json:"document"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
	Rank       int               `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// AutoFuzzy indicates that fuzzy search was enabled because the exact search found nothing.
	AutoFuzzy bool `json:"auto_fuzzy,omitempty"`
}
