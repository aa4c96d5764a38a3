package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *SearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty query", &SearchQuery{Query: ""}, true, 0},
		{"blank query", &SearchQuery{Query: "   "}, true, 0},
		{"valid query", &SearchQuery{Query: "hello", Limit: 5}, false, 5},
		{"sets default limit", &SearchQuery{Query: "x", Limit: 0}, false, 10},
		{"caps limit at 100", &SearchQuery{Query: "x", Limit: 200}, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
		})
	}
}

func TestSearchQuery_ValidateTrimsAndClampsOffset(t *testing.T) {
	q := &SearchQuery{Query: "  invoice  ", Offset: -3}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Query != "invoice" {
		t.Errorf("query = %q", q.Query)
	}
	if q.Offset != 0 {
		t.Errorf("offset = %d", q.Offset)
	}
}
