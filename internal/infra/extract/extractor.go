// Package extract reads the text of documents stored in a session.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"scholar/internal/domain/research"
	"scholar/internal/infra/filestore"
	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/logging"
	"scholar/internal/shared/textutil"
)

const (
	DefaultMaxChars = 50000
	truncatedMarker = "\n\n[... Truncated ...]"
)

// Extractor applies the page and character budget on top of a backend.
type Extractor struct {
	backend  PageExtractor
	maxChars int
	logger   logging.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithBackend swaps the parsing backend.
func WithBackend(backend PageExtractor) Option {
	return func(e *Extractor) {
		if backend != nil {
			e.backend = backend
		}
	}
}

// WithMaxChars overrides the output character budget.
func WithMaxChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

// WithLogger sets the extractor logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Extractor) { e.logger = logging.OrNop(logger) }
}

// New returns an Extractor backed by PDFBackend unless overridden.
func New(opts ...Option) *Extractor {
	e := &Extractor{backend: PDFBackend{}, maxChars: DefaultMaxChars, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeFilename appends ".pdf" when missing and rejects path components.
func NormalizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	if err := filestore.ContainedName(name); err != nil {
		return "", &serrors.ValidationError{Field: "filename", Message: err.Error()}
	}
	return name, nil
}

// ExtractText reads up to maxPages pages (all when <= 0) of a stored document.
// A document without any text yields a result carrying Warning and a nil
// error; a missing document is a NotFoundError.
func (e *Extractor) ExtractText(h research.Handle, filename string, maxPages int) (research.ExtractedText, error) {
	name, err := NormalizeFilename(filename)
	if err != nil {
		return research.ExtractedText{}, err
	}

	data, err := os.ReadFile(h.DocumentPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return research.ExtractedText{}, &serrors.NotFoundError{Kind: "document", Name: name}
		}
		return research.ExtractedText{}, fmt.Errorf("read %s: %w", name, err)
	}

	pages, err := e.backend.ExtractPages(data, maxPages)
	if errors.Is(err, ErrEncrypted) {
		e.logger.Warn("Document %s is encrypted; no text extracted", name)
		warning := &serrors.ExtractionWarning{Filename: name, Reason: "document is encrypted"}
		return research.ExtractedText{Filename: name, Warning: warning.Error()}, nil
	}
	if err != nil {
		return research.ExtractedText{}, fmt.Errorf("extract %s: %w", name, err)
	}

	result := research.ExtractedText{
		Filename:   name,
		PagesRead:  len(pages.Pages),
		TotalPages: pages.Total,
	}

	blocks := make([]string, 0, len(pages.Pages))
	for _, page := range pages.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("--- Page %d ---\n%s", page.Number, page.Text))
	}
	result.PagesWithText = len(blocks)

	if len(blocks) == 0 {
		warning := &serrors.ExtractionWarning{Filename: name}
		e.logger.Info("No text extracted from %s (%d pages)", name, pages.Total)
		result.Warning = warning.Error()
		return result, nil
	}

	text := strings.Join(blocks, "\n\n")
	if capped, cut := textutil.Truncate(text, e.maxChars); cut {
		text = capped + truncatedMarker
		result.Truncated = true
	}
	result.Text = text
	return result, nil
}
