// Package search normalizes external search providers into one result shape.
package search

import (
	"context"
	"regexp"
	"strings"

	"scholar/internal/domain/research"
)

// Provider names understood by the gateway.
const (
	ProviderTavily     = "tavily"
	ProviderArxiv      = "arxiv"
	ProviderDuckDuckGo = "duckduckgo"
)

// Provider is one external search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error)
}

// AcademicDomains is the allow-list used for academic web searches.
var AcademicDomains = []string{
	"arxiv.org",
	"scholar.google.com",
	"pubmed.ncbi.nlm.nih.gov",
	"ncbi.nlm.nih.gov",
	"sciencedirect.com",
	"nature.com",
	"science.org",
	"ieee.org",
	"acm.org",
	"researchgate.net",
	"semanticscholar.org",
	"biorxiv.org",
	"medrxiv.org",
	"plos.org",
	"frontiersin.org",
	"mdpi.com",
	"springer.com",
	"wiley.com",
	"cell.com",
}

// AcademicQuerySuffix steers general web search engines toward papers.
const AcademicQuerySuffix = " research paper PDF academic"

var documentURLPattern = regexp.MustCompile(`\.pdf\?|\.pdf#|/pdf/|arxiv\.org/pdf/|download.*pdf`)

// IsDocumentURL reports whether a URL likely points at a PDF.
func IsDocumentURL(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return false
	}
	return strings.HasSuffix(lower, ".pdf") || documentURLPattern.MatchString(lower)
}
