package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docvault/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(companyID int64, name string) *models.Document {
	return &models.Document{
		Filename:         "uuid_" + name,
		OriginalFilename: name,
		FilePath:         "/uploads/uuid_" + name,
		FileType:         filepath.Ext(name)[1:],
		FileSize:         11,
		CompanyID:        companyID,
		UploadedBy:       7,
	}
}

func TestSQLiteStorage_CreateWithContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument(1, "hello.txt")
	content := &models.DocumentContent{Content: "Hello\nWorld"}
	if err := store.CreateDocument(ctx, doc, content); err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" || doc.CreatedAt.IsZero() {
		t.Errorf("ID and CreatedAt should be set: %+v", doc)
	}
	if !doc.IsProcessed {
		t.Error("IsProcessed should be true with content")
	}

	got, err := store.GetDocument(ctx, 1, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.OriginalFilename != "hello.txt" || got.FileType != "txt" || !got.IsProcessed || got.UploadedBy != 7 {
		t.Errorf("got %+v", got)
	}

	c, err := store.GetContent(ctx, 1, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Content != "Hello\nWorld" || c.ContentType != models.ContentTypeText || c.PageNumber != 1 || c.DocumentID != doc.ID {
		t.Errorf("got %+v", c)
	}
}

func TestSQLiteStorage_CreateWithoutContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument(1, "legacy.doc")
	doc.IsProcessed = true // overridden: no content means not processed
	if err := store.CreateDocument(ctx, doc, nil); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetDocument(ctx, 1, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsProcessed {
		t.Error("IsProcessed should be false without content")
	}
	if _, err := store.GetContent(ctx, 1, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_RejectsBlankContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument(1, "blank.txt")
	err := store.CreateDocument(ctx, doc, &models.DocumentContent{Content: "  \n "})
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("got %v, want ErrEmptyContent", err)
	}
	if n, _ := store.CountDocuments(ctx, 1); n != 0 {
		t.Errorf("document persisted despite rejected content: %d", n)
	}
}

func TestSQLiteStorage_CreateIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testDocument(1, "a.txt")
	if err := store.CreateDocument(ctx, first, &models.DocumentContent{ID: "content-1", Content: "a"}); err != nil {
		t.Fatal(err)
	}
	// Reusing the content ID fails the second insert after the document insert succeeded.
	second := testDocument(1, "b.txt")
	if err := store.CreateDocument(ctx, second, &models.DocumentContent{ID: "content-1", Content: "b"}); err == nil {
		t.Fatal("expected duplicate content id error")
	}
	if _, err := store.GetDocument(ctx, 1, second.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document of failed transaction is visible: %v", err)
	}
	if n, _ := store.CountDocuments(ctx, 1); n != 1 {
		t.Errorf("CountDocuments = %d, want 1", n)
	}
}

func TestSQLiteStorage_TenantScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument(1, "secret.txt")
	if err := store.CreateDocument(ctx, doc, &models.DocumentContent{Content: "secret"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, 2, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument other company: %v", err)
	}
	if _, err := store.GetContent(ctx, 2, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent other company: %v", err)
	}
	if err := store.DeleteDocument(ctx, 2, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDocument other company: %v", err)
	}
	list, err := store.ListDocuments(ctx, 2, 0, 10)
	if err != nil || len(list) != 0 {
		t.Errorf("ListDocuments other company: %v, %d", err, len(list))
	}
}

func TestSQLiteStorage_ListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		doc := testDocument(5, name)
		if err := store.CreateDocument(ctx, doc, nil); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, doc.ID)
	}

	list, err := store.ListDocuments(ctx, 5, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d documents", len(list))
	}
	if list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Errorf("order = %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}

	page, err := store.ListDocuments(ctx, 5, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != ids[1] {
		t.Errorf("page = %+v", page)
	}
}

func TestSQLiteStorage_DeleteRemovesContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := testDocument(1, "a.txt")
	if err := store.CreateDocument(ctx, doc, &models.DocumentContent{Content: "text"}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteDocument(ctx, 1, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, 1, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument after delete: %v", err)
	}
	if _, err := store.GetContent(ctx, 1, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent after delete: %v", err)
	}
	if err := store.DeleteDocument(ctx, 1, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.CountDocuments(ctx, 1)
	if err != nil || n != 0 {
		t.Errorf("CountDocuments: %v, %d", err, n)
	}
	_ = store.CreateDocument(ctx, testDocument(1, "a.txt"), &models.DocumentContent{Content: "a"})
	_ = store.CreateDocument(ctx, testDocument(1, "b.doc"), nil)
	_ = store.CreateDocument(ctx, testDocument(2, "c.txt"), &models.DocumentContent{Content: "c"})

	stats, err := Stats(ctx, store, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocuments != 2 || stats.ProcessedDocuments != 1 || stats.PendingDocuments != 1 || stats.DiskUsageBytes != 22 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSQLiteStorage_TotalFileSizeEmpty(t *testing.T) {
	store := newTestStore(t)
	n, err := store.TotalFileSize(context.Background(), 3)
	if err != nil || n != 0 {
		t.Errorf("TotalFileSize: %v, %d", err, n)
	}
}
