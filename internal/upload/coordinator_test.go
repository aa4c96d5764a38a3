package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/docvault/internal/extract"
	"github.com/hyperjump/docvault/internal/keyword"
	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/internal/storage"
)

type memBlobs struct {
	files   map[string][]byte
	failOn  string
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: map[string][]byte{}}
}

func (b *memBlobs) Save(r io.Reader, name string) (string, int64, error) {
	if b.failOn != "" && strings.HasSuffix(name, b.failOn) {
		return "", 0, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	path := "/uploads/" + name
	b.files[path] = data
	return path, int64(len(data)), nil
}

func (b *memBlobs) Exists(path string) bool {
	_, ok := b.files[path]
	return ok
}

func (b *memBlobs) Delete(path string) error {
	delete(b.files, path)
	b.deleted = append(b.deleted, path)
	return nil
}

type memDocuments struct {
	docs     []*models.Document
	contents map[string]*models.DocumentContent
	failOn   string
}

func newMemDocuments() *memDocuments {
	return &memDocuments{contents: map[string]*models.DocumentContent{}}
}

func (s *memDocuments) CreateDocument(_ context.Context, doc *models.Document, content *models.DocumentContent) error {
	if s.failOn != "" && doc.OriginalFilename == s.failOn {
		return errors.New("constraint violated")
	}
	doc.ID = doc.OriginalFilename
	doc.IsProcessed = content != nil
	s.docs = append(s.docs, doc)
	if content != nil {
		s.contents[doc.ID] = content
	}
	return nil
}

// extDispatcher returns a fixed outcome per extension; unknown extensions are empty.
type extDispatcher struct {
	outcomes map[string]extract.Outcome
	paths    []string
}

func (d *extDispatcher) Dispatch(_ context.Context, path, ext string) extract.Outcome {
	d.paths = append(d.paths, path)
	if out, ok := d.outcomes[ext]; ok {
		return out
	}
	return extract.Outcome{Kind: extract.OutcomeEmpty, Tag: extract.Classify(ext)}
}

type memIndex struct {
	entries []*keyword.Entry
}

func (m *memIndex) Index(_ context.Context, e *keyword.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memIndex) Search(context.Context, int64, string, int, *keyword.SearchOptions) ([]*keyword.KeywordResult, error) {
	return nil, nil
}

func (m *memIndex) Delete(context.Context, string) error { return nil }

func (m *memIndex) Close() error { return nil }

func (m *memIndex) DocCount() (uint64, error) { return uint64(len(m.entries)), nil }

func file(name, body string) models.UploadedFile {
	return models.UploadedFile{Filename: name, Open: OpenBytes([]byte(body))}
}

func TestAllowed(t *testing.T) {
	c := NewCoordinator(newMemBlobs(), newMemDocuments(), &extDispatcher{})
	tests := []struct {
		name string
		want bool
	}{
		{"a.txt", true},
		{"A.PDF", true},
		{"scan.jpeg", true},
		{"old.doc", true},
		{"book.xls", true},
		{"noext", false},
		{"script.exe", false},
		{"slides.pptx", false},
		{"archive.tar.gz", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.Allowed(tt.name); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProcessBatch_noFiles(t *testing.T) {
	c := NewCoordinator(newMemBlobs(), newMemDocuments(), &extDispatcher{})
	if _, err := c.ProcessBatch(context.Background(), nil, 1, 1); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("err = %v, want ErrNoFiles", err)
	}
}

func TestProcessBatch_skipsEmptyAndDisallowed(t *testing.T) {
	blobs := newMemBlobs()
	docs := newMemDocuments()
	c := NewCoordinator(blobs, docs, &extDispatcher{})

	res, err := c.ProcessBatch(context.Background(), []models.UploadedFile{
		file("", "x"),
		file("virus.exe", "x"),
		file("README", "x"),
	}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 0 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v, want nothing accepted or failed", res)
	}
	if len(blobs.files) != 0 || len(docs.docs) != 0 {
		t.Error("skipped files must not be stored")
	}
}

func TestProcessBatch_partialFailure(t *testing.T) {
	blobs := newMemBlobs()
	docs := newMemDocuments()
	docs.failOn = "b.txt"
	d := &extDispatcher{outcomes: map[string]extract.Outcome{
		"txt": {Kind: extract.OutcomeExtracted, Tag: extract.TagPlainText, Text: "hello"},
	}}
	c := NewCoordinator(blobs, docs, d)

	res, err := c.ProcessBatch(context.Background(), []models.UploadedFile{
		file("a.txt", "hello"),
		file("b.txt", "hello"),
		file("c.txt", "hello"),
	}, 7, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 2 || res.Accepted[0].OriginalFilename != "a.txt" || res.Accepted[1].OriginalFilename != "c.txt" {
		t.Fatalf("accepted = %+v", res.Accepted)
	}
	if len(res.Failed) != 1 || res.Failed[0].Filename != "b.txt" || res.Failed[0].Error == "" {
		t.Fatalf("failed = %+v", res.Failed)
	}
	if len(blobs.deleted) != 1 || !strings.HasSuffix(blobs.deleted[0], "_b.txt") {
		t.Errorf("deleted = %v, want the b.txt blob removed", blobs.deleted)
	}
	if len(blobs.files) != 2 {
		t.Errorf("stored files = %d, want 2", len(blobs.files))
	}
	for _, doc := range res.Accepted {
		if doc.CompanyID != 7 || doc.UploadedBy != 3 {
			t.Errorf("doc %s: company %d uploader %d", doc.ID, doc.CompanyID, doc.UploadedBy)
		}
	}
}

func TestProcessBatch_saveFailureContinues(t *testing.T) {
	blobs := newMemBlobs()
	blobs.failOn = "bad.txt"
	docs := newMemDocuments()
	c := NewCoordinator(blobs, docs, &extDispatcher{})

	res, err := c.ProcessBatch(context.Background(), []models.UploadedFile{
		file("bad.txt", "x"),
		file("good.txt", "x"),
		{Filename: "nobody.txt"},
	}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 1 || res.Accepted[0].OriginalFilename != "good.txt" {
		t.Fatalf("accepted = %+v", res.Accepted)
	}
	if len(res.Failed) != 2 || res.Failed[0].Filename != "bad.txt" || res.Failed[1].Filename != "nobody.txt" {
		t.Fatalf("failed = %+v", res.Failed)
	}
}

func TestProcessBatch_outcomesMapToProcessedFlag(t *testing.T) {
	docs := newMemDocuments()
	d := &extDispatcher{outcomes: map[string]extract.Outcome{
		"txt": {Kind: extract.OutcomeExtracted, Tag: extract.TagPlainText, Text: "plain"},
		"png": {Kind: extract.OutcomeExtracted, Tag: extract.TagImage, Text: "scanned"},
		"pdf": {Kind: extract.OutcomeFailed, Tag: extract.TagPDF, Err: errors.New("corrupt")},
	}}
	idx := &memIndex{}
	c := NewCoordinator(newMemBlobs(), docs, d, WithIndex(idx))

	res, err := c.ProcessBatch(context.Background(), []models.UploadedFile{
		file("notes.txt", "plain"),
		file("scan.png", "\x89PNG"),
		file("broken.pdf", "not a pdf"),
		file("legacy.doc", "\xd0\xcf"),
	}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 4 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}

	tests := []struct {
		id          string
		processed   bool
		contentType string
	}{
		{"notes.txt", true, models.ContentTypeText},
		{"scan.png", true, models.ContentTypeOCR},
		{"broken.pdf", false, ""},
		{"legacy.doc", false, ""},
	}
	for i, tt := range tests {
		doc := res.Accepted[i]
		if doc.ID != tt.id || doc.IsProcessed != tt.processed {
			t.Errorf("doc %d = %s processed %v, want %s processed %v", i, doc.ID, doc.IsProcessed, tt.id, tt.processed)
		}
		content, ok := docs.contents[tt.id]
		if ok != tt.processed {
			t.Errorf("%s: content present = %v, want %v", tt.id, ok, tt.processed)
		}
		if ok && content.ContentType != tt.contentType {
			t.Errorf("%s: content type = %q, want %q", tt.id, content.ContentType, tt.contentType)
		}
	}
	if len(idx.entries) != 2 {
		t.Errorf("indexed %d documents, want 2", len(idx.entries))
	}
}

func TestProcessBatch_sanitizesNames(t *testing.T) {
	d := &extDispatcher{}
	c := NewCoordinator(newMemBlobs(), newMemDocuments(), d)

	res, err := c.ProcessBatch(context.Background(), []models.UploadedFile{
		file("../../etc/My Report.TXT", "x"),
	}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	doc := res.Accepted[0]
	if doc.OriginalFilename != "My_Report.TXT" {
		t.Errorf("original filename = %q", doc.OriginalFilename)
	}
	if doc.FileType != "txt" {
		t.Errorf("file type = %q, want txt", doc.FileType)
	}
	if !strings.HasSuffix(doc.Filename, "_My_Report.TXT") || len(doc.Filename) <= len("_My_Report.TXT") {
		t.Errorf("storage filename = %q", doc.Filename)
	}
	if len(d.paths) != 1 || d.paths[0] != "/uploads/"+doc.Filename {
		t.Errorf("dispatched paths = %v", d.paths)
	}
}

func TestProcessBatch_pageCountOnlyForPDF(t *testing.T) {
	var counted []string
	pc := func(path string) (int, error) {
		counted = append(counted, path)
		return 12, nil
	}
	c := NewCoordinator(newMemBlobs(), newMemDocuments(), &extDispatcher{}, WithPageCounter(pc))

	res, err := c.ProcessBatch(context.Background(), []models.UploadedFile{
		file("a.pdf", "%PDF"),
		file("b.txt", "x"),
	}, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Accepted[0].PageCount != 12 || res.Accepted[1].PageCount != 0 {
		t.Errorf("page counts = %d, %d", res.Accepted[0].PageCount, res.Accepted[1].PageCount)
	}
	if len(counted) != 1 {
		t.Errorf("page counter called %d times, want 1", len(counted))
	}
}

func TestProcessBatch_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCoordinator(newMemBlobs(), newMemDocuments(), &extDispatcher{})

	res, err := c.ProcessBatch(ctx, []models.UploadedFile{file("a.txt", "x")}, 1, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res == nil || len(res.Accepted) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessBatch_withSQLiteAndRealDispatcher(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "docs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	blobs, err := storage.NewFileStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	dispatcher, err := extract.NewDispatcher(extract.DefaultStrategies(extract.NewImageStrategy(nil, "", "")))
	if err != nil {
		t.Fatal(err)
	}
	c := NewCoordinator(blobs, store, dispatcher, WithPageCounter(extract.CountPDFPages))
	ctx := context.Background()

	res, err := c.ProcessBatch(ctx, []models.UploadedFile{
		file("hello.txt", "Hello World"),
		file("blank.txt", "   \n\t"),
		file("broken.pdf", "this is not a pdf"),
	}, 5, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Accepted) != 3 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v", res)
	}

	want := map[string]bool{"hello.txt": true, "blank.txt": false, "broken.pdf": false}
	for _, doc := range res.Accepted {
		if doc.IsProcessed != want[doc.OriginalFilename] {
			t.Errorf("%s processed = %v", doc.OriginalFilename, doc.IsProcessed)
		}
		if _, err := os.Stat(doc.FilePath); err != nil {
			t.Errorf("%s: stored file missing: %v", doc.OriginalFilename, err)
		}
		_, err := store.GetContent(ctx, 5, doc.ID)
		if doc.IsProcessed && err != nil {
			t.Errorf("%s: content missing: %v", doc.OriginalFilename, err)
		}
		if !doc.IsProcessed && !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", doc.OriginalFilename, err)
		}
	}

	stats, err := storage.Stats(ctx, store, 5)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocuments != 3 || stats.ProcessedDocuments != 1 || stats.PendingDocuments != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
