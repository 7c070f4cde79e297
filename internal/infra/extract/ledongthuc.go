package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFBackend extracts plain text with github.com/ledongthuc/pdf.
type PDFBackend struct{}

func (PDFBackend) ExtractPages(data []byte, limit int) (pages Pages, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return Pages{}, ErrEncrypted
		}
		return Pages{}, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	read := total
	if limit > 0 && limit < total {
		read = limit
	}

	pages = Pages{Total: total, Pages: make([]PageText, 0, read)}
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= read; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages.Pages = append(pages.Pages, PageText{Number: i})
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		text, textErr := page.GetPlainText(fonts)
		if textErr != nil {
			text = ""
		}
		pages.Pages = append(pages.Pages, PageText{Number: i, Text: strings.TrimSpace(text)})
	}
	return pages, nil
}
