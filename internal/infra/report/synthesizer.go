// Package report writes the single Markdown report of a session.
package report

import (
	"fmt"
	"strings"
	"time"

	"scholar/internal/domain/research"
	"scholar/internal/infra/filestore"
	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/logging"
	"scholar/internal/shared/markdown"
)

const (
	generatedLayout = "2006-01-02 15:04:05"
	footer          = "Generated by Autonomous Research Agent"
)

// Synthesizer assembles and stores reports.
type Synthesizer struct {
	now    func() time.Time
	logger logging.Logger
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the synthesizer logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Synthesizer) { s.logger = logging.OrNop(logger) }
}

// New returns a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{now: time.Now, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteReport renders input and replaces the session report.
func (s *Synthesizer) WriteReport(h research.Handle, input research.ReportInput) (string, string, error) {
	if strings.TrimSpace(input.Title) == "" {
		return "", "", &serrors.ValidationError{Field: "title", Message: "must not be empty"}
	}
	content := Render(input, s.now())
	path := h.ReportPath()
	if err := filestore.AtomicWrite(path, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}
	s.logger.Info("Report written to %s", path)
	return path, content, nil
}

// Render builds the report. Output depends only on input and generatedAt.
// Sections with empty input are left out.
func Render(input research.ReportInput, generatedAt time.Time) string {
	var doc markdown.Builder
	doc.Heading(1, "Research Report: "+input.Title)
	doc.Emphasis("Generated: " + generatedAt.Format(generatedLayout))
	doc.Rule()

	if strings.TrimSpace(input.Summary) != "" {
		doc.Heading(2, "Executive Summary").Paragraph(input.Summary).Rule()
	}

	if findings := nonEmpty(input.Findings); len(findings) > 0 {
		doc.Heading(2, "Key Findings").OrderedList(findings).Rule()
	}

	if len(input.PaperSummaries) > 0 {
		doc.Heading(2, "Paper Summaries")
		for _, paper := range input.PaperSummaries {
			title := strings.TrimSpace(paper.Title)
			if title == "" {
				title = "Untitled"
			}
			source := strings.TrimSpace(paper.Source)
			if source == "" {
				source = "N/A"
			}
			doc.Heading(3, title).Field("Source", source).Paragraph(paper.Content)
		}
		doc.Rule()
	}

	if strings.TrimSpace(input.Methodology) != "" {
		doc.Heading(2, "Research Methodology").Paragraph(input.Methodology).Rule()
	}

	if references := nonEmpty(input.References); len(references) > 0 {
		doc.Heading(2, "References").OrderedList(references).Rule()
	}

	doc.Emphasis(footer)
	return doc.String()
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
