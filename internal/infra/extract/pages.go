package extract

import "errors"

// ErrEncrypted marks documents the backend cannot decrypt.
var ErrEncrypted = errors.New("document is encrypted")

// PageText is the text of one page, numbered from 1.
type PageText struct {
	Number int
	Text   string
}

// Pages is what a backend returns for one document.
type Pages struct {
	Total int
	Pages []PageText
}

// PageExtractor turns document bytes into per-page text. Implementations read
// at most limit pages in order; limit <= 0 means every page.
type PageExtractor interface {
	ExtractPages(data []byte, limit int) (Pages, error)
}

// PageExtractorFunc adapts a function to PageExtractor.
type PageExtractorFunc func(data []byte, limit int) (Pages, error)

func (f PageExtractorFunc) ExtractPages(data []byte, limit int) (Pages, error) {
	return f(data, limit)
}
