package models

import "io"

// UploadedFile is one incoming file of a batch. Open may be called once.
type UploadedFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// StoredFile describes bytes written to the upload directory.
type StoredFile struct {
	Path         string
	StorageName  string
	OriginalName string
	Extension    string
	Size         int64
}

// FileFailure records a file that was valid for upload but could not be persisted.
type FileFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult aggregates the per-file results of an upload batch.
// Skipped files (empty name or disallowed extension) appear in neither list.
type BatchResult struct {
	Accepted []*Document   `json:"accepted"`
	Failed   []FileFailure `json:"failed,omitempty"`
}
