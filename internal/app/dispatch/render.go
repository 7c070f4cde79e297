package dispatch

import (
	"fmt"
	"strings"

	"scholar/internal/domain/research"
	"scholar/internal/shared/textutil"
)

const (
	separator        = "============================================================"
	webSnippetLimit  = 200
	bytesPerMegabyte = 1024 * 1024
)

func renderWebSearch(query string, results []research.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for: %s", query)
	}
	var docs []string
	for _, r := range results {
		if r.IsDocument {
			docs = append(docs, r.URL)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results for: %s\n", len(results), query)
	if len(docs) > 0 {
		fmt.Fprintf(&b, "\nPDF URLs found: %d\n", len(docs))
	}
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "No title"
		}
		marker := ""
		if r.IsDocument {
			marker = " [PDF]"
		}
		fmt.Fprintf(&b, "\n%d. %s%s\n   URL: %s\n   %s\n", i+1, title, marker, r.URL, textutil.Ellipsize(r.Snippet, webSnippetLimit))
	}
	if len(docs) > 0 {
		b.WriteString("\n\nPDF URLs for download:\n")
		for _, u := range docs {
			fmt.Fprintf(&b, "  - %s\n", u)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderArxivSearch(query string, results []research.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No ArXiv papers found for: %s", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d ArXiv papers for: %s\n\n%s\n", len(results), query, separator)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   Authors: %s\n", strings.Join(r.Authors, ", "))
		fmt.Fprintf(&b, "   ArXiv ID: %s\n", r.ArxivID)
		fmt.Fprintf(&b, "   Categories: %s\n", strings.Join(r.Categories, ", "))
		fmt.Fprintf(&b, "   Published: %s\n", r.Published)
		fmt.Fprintf(&b, "   PDF: %s\n", r.PDFURL)
		fmt.Fprintf(&b, "   Abstract: %s\n", r.Snippet)
	}
	fmt.Fprintf(&b, "\n%s\n\nPDF URLs for download:\n", separator)
	for _, r := range results {
		if r.PDFURL != "" {
			fmt.Fprintf(&b, "  - %s\n", r.PDFURL)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDownloadReport(report research.DownloadReport, folder string) string {
	var b strings.Builder
	b.WriteString("Download Summary:\n")
	fmt.Fprintf(&b, "  Total: %d, Successful: %d, Failed: %d, Skipped: %d\n",
		report.Total, report.Successful, report.Failed, report.Skipped)
	fmt.Fprintf(&b, "  Output folder: %s/\n\nDetails:\n", folder)
	for _, o := range report.Outcomes {
		name := o.Filename
		if name == "" {
			name = "unknown"
		}
		switch o.Status {
		case research.DownloadSkipped:
			fmt.Fprintf(&b, "  [skip] %s (already exists)\n", name)
		case research.DownloadSuccessful:
			fmt.Fprintf(&b, "  [ok] %s (%.2f MB)\n", name, float64(o.Bytes)/bytesPerMegabyte)
		default:
			fmt.Fprintf(&b, "  [failed] %s: %s\n", name, o.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderExtracted(doc research.ExtractedText) string {
	if !doc.HasText() {
		return "Warning: " + doc.Warning
	}
	return fmt.Sprintf("PDF: %s\nPages: %d/%d\n\n%s", doc.Filename, doc.PagesWithText, doc.TotalPages, doc.Text)
}

func renderSavedNote(note research.Note) string {
	return fmt.Sprintf("Note saved: %s\nType: %s\nTitle: %s", note.ID, note.Type, note.Title)
}

func renderNotes(notes []research.Note, typeFilter string, tags []string) string {
	if len(notes) == 0 {
		if typeFilter == "" {
			typeFilter = research.NoteTypeAll
		}
		if len(tags) > 0 {
			return fmt.Sprintf("No notes found matching filters (type: %s, tags: %s)", typeFilter, strings.Join(tags, ", "))
		}
		return fmt.Sprintf("No notes found matching filters (type: %s)", typeFilter)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes:\n", len(notes))
	for i, note := range notes {
		source := note.Source
		if source == "" {
			source = "N/A"
		}
		tagText := "None"
		if len(note.Tags) > 0 {
			tagText = strings.Join(note.Tags, ", ")
		}
		fmt.Fprintf(&b, "\n%s\nNote %d: [%s] %s\n", separator, i+1, strings.ToUpper(string(note.Type)), note.Title)
		fmt.Fprintf(&b, "Source: %s\nTags: %s\nTime: %s\n\n%s\n", source, tagText, note.Timestamp.Format("2006-01-02T15:04:05"), note.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderReportSaved(path, content string) string {
	return fmt.Sprintf("Report saved: %s\n\n%s", path, content)
}
