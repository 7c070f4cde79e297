package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scholar/internal/domain/research"
)

func TestRenderDownloadReport(t *testing.T) {
	var report research.DownloadReport
	report.Add(research.DownloadOutcome{Filename: "a.pdf", Status: research.DownloadSuccessful, Bytes: 2 * bytesPerMegabyte})
	report.Add(research.DownloadOutcome{Filename: "b.pdf", Status: research.DownloadSkipped})
	report.Add(research.DownloadOutcome{Status: research.DownloadFailed, Reason: "timeout"})

	text := renderDownloadReport(report, "/tmp/s/pdfs")
	assert.Contains(t, text, "Total: 3, Successful: 1, Failed: 1, Skipped: 1")
	assert.Contains(t, text, "Output folder: /tmp/s/pdfs/")
	assert.Contains(t, text, "[ok] a.pdf (2.00 MB)")
	assert.Contains(t, text, "[skip] b.pdf (already exists)")
	assert.Contains(t, text, "[failed] unknown: timeout")
}

func TestRenderNotes(t *testing.T) {
	assert.Equal(t, "No notes found matching filters (type: all)", renderNotes(nil, "", nil))
	assert.Equal(t, "No notes found matching filters (type: insight, tags: a, b)", renderNotes(nil, "insight", []string{"a", "b"}))

	text := renderNotes([]research.Note{{
		Type:      research.NoteFinding,
		Title:     "Scaling",
		Content:   "Loss follows a power law.",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}, "all", nil)
	assert.Contains(t, text, "Found 1 notes:")
	assert.Contains(t, text, "Note 1: [FINDING] Scaling")
	assert.Contains(t, text, "Source: N/A\nTags: None\nTime: 2024-01-02T03:04:05")
}

func TestRenderWebSearchFlagsDocuments(t *testing.T) {
	text := renderWebSearch("q", []research.SearchResult{
		{Title: "Doc", URL: "https://x/a.pdf", IsDocument: true},
		{URL: "https://x/page"},
	})
	assert.Contains(t, text, "Found 2 results for: q")
	assert.Contains(t, text, "1. Doc [PDF]")
	assert.Contains(t, text, "2. No title")
	assert.Contains(t, text, "PDF URLs found: 1")
	assert.Equal(t, "No results found for: q", renderWebSearch("q", nil))
}
