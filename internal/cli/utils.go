// Package cli formats command output for docvault.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named s. Unknown names are text.
func ParseOutputFormat(s string) OutputFormat {
	if OutputFormat(s) == OutputJSON {
		return OutputJSON
	}
	return OutputText
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms", response.Total, response.QueryTime)
	if response.AutoFuzzy {
		fmt.Fprint(w, " (fuzzy)")
	}
	fmt.Fprint(w, "\n\n")
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "ID: %s\n", result.Document.ID)
	fmt.Fprintf(w, "File: %s (%s)\n", result.Document.OriginalFilename, result.Document.FileType)
	if hl := result.Highlights["content"]; hl != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(utils.SingleLine(hl), 200))
	}
	fmt.Fprintln(w)
}

// WriteBatchResult writes the outcome of an upload batch.
func WriteBatchResult(w io.Writer, result *models.BatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "Accepted %d file(s), failed %d\n", len(result.Accepted), len(result.Failed))
	for _, doc := range result.Accepted {
		status := "pending"
		if doc.IsProcessed {
			status = "processed"
		}
		fmt.Fprintf(w, "  ok    %s  %s  %s  %s\n", doc.ID, doc.OriginalFilename, utils.HumanBytes(doc.FileSize), status)
	}
	for _, f := range result.Failed {
		fmt.Fprintf(w, "  FAIL  %s: %s\n", f.Filename, f.Error)
	}
	return nil
}

// WriteStats writes a company's document counts.
func WriteStats(w io.Writer, companyID int64, stats *models.DocumentStats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Company %d\n", companyID)
	fmt.Fprintf(w, "  Documents:  %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "  Processed:  %d\n", stats.ProcessedDocuments)
	fmt.Fprintf(w, "  Pending:    %d\n", stats.PendingDocuments)
	fmt.Fprintf(w, "  Disk usage: %s\n", utils.HumanBytes(stats.DiskUsageBytes))
	return nil
}
