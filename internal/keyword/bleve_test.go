package keyword

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func mustIndex(t *testing.T, idx KeywordIndex, entries ...*Entry) {
	t.Helper()
	for _, e := range entries {
		if err := idx.Index(context.Background(), e); err != nil {
			t.Fatalf("Index %s: %v", e.ID, err)
		}
	}
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	mustIndex(t, idx, &Entry{
		ID:        "doc-1",
		CompanyID: 1,
		Filename:  "Aylık Rapor Mayıs.docx",
		Content:   "This report mentions Omnisyan and other findings. The Bayes app is also referenced.",
	})

	results, err := idx.Search(ctx, 1, "Omnisyan", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc-1" {
		t.Fatalf("results = %+v", results)
	}

	// Standard analyzer (no stemming) so "bayes" matches "Bayes" in content
	results, err = idx.Search(ctx, 1, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result for bayes, got %d", len(results))
	}
}

func TestBleveIndex_SearchFindsFilename(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx, &Entry{ID: "doc-1", CompanyID: 1, Filename: "invoice_march.pdf", Content: "total amount due"})

	results, err := idx.Search(context.Background(), 1, "invoice", 10, &SearchOptions{FilenameBoost: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc-1" {
		t.Errorf("results = %+v", results)
	}
}

func TestBleveIndex_SearchIsScopedToCompany(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx,
		&Entry{ID: "a", CompanyID: 1, Filename: "a.txt", Content: "shared keyword alpha"},
		&Entry{ID: "b", CompanyID: 2, Filename: "b.txt", Content: "shared keyword beta"},
	)

	results, err := idx.Search(context.Background(), 2, "shared", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Errorf("results = %+v", results)
	}

	results, err = idx.Search(context.Background(), 3, "shared", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("unexpected results for unknown company: %+v", results)
	}
}

func TestBleveIndex_FuzzySearch(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx, &Entry{ID: "doc-1", CompanyID: 1, Filename: "notes.txt", Content: "quarterly revenue summary"})
	ctx := context.Background()

	exact, err := idx.Search(ctx, 1, "revenu", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exact) != 0 {
		t.Fatalf("exact search should not match a typo: %+v", exact)
	}

	fuzzy, err := idx.Search(ctx, 1, "revenu summery", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) != 1 || fuzzy[0].ID != "doc-1" {
		t.Errorf("fuzzy results = %+v", fuzzy)
	}
}

func TestBleveIndex_Highlight(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx, &Entry{ID: "doc-1", CompanyID: 1, Filename: "a.txt", Content: "the contract renewal date is in June"})

	results, err := idx.Search(context.Background(), 1, "renewal", 10, &SearchOptions{Highlight: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0].Fragments) == 0 {
		t.Fatalf("expected fragments: %+v", results)
	}
	if !strings.Contains(results[0].Fragments[0], "renewal") {
		t.Errorf("fragment = %q", results[0].Fragments[0])
	}
}

func TestBleveIndex_OpenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	mustIndex(t, idx, &Entry{ID: "doc-1", CompanyID: 1, Filename: "a.txt", Content: "persisted text"})
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	n, err := reopened.DocCount()
	if err != nil || n != 1 {
		t.Errorf("DocCount = %d, %v", n, err)
	}
	results, err := reopened.Search(context.Background(), 1, "persisted", 10, nil)
	if err != nil || len(results) != 1 {
		t.Errorf("results = %+v, %v", results, err)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	mustIndex(t, idx, &Entry{ID: "doc-1", CompanyID: 1, Filename: "a.txt", Content: "removable"})

	if err := idx.Delete(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, 1, "removable", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deleted document still found: %+v", results)
	}
	if err := idx.Delete(ctx, "never-indexed"); err != nil {
		t.Errorf("Delete unknown id: %v", err)
	}
}

func TestNewBleveIndex_createsDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("index dir not created: %v", err)
	}
}

func TestNewMemBleveIndex(t *testing.T) {
	idx, err := NewMemBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	mustIndex(t, idx, &Entry{ID: "m", CompanyID: 9, Filename: "m.txt", Content: "in memory"})
	results, err := idx.Search(context.Background(), 9, "memory", 10, nil)
	if err != nil || len(results) != 1 {
		t.Errorf("results = %+v, %v", results, err)
	}
}
