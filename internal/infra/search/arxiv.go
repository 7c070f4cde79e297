package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed/atom"

	"scholar/internal/domain/research"
	"scholar/internal/infra/httpclient"
	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/textutil"
)

const (
	arxivMaxResponseBytes = 8 << 20
	arxivAbstractLimit    = 300
	arxivAuthorLimit      = 3
	arxivCategoryLimit    = 3
)

// Arxiv queries the arXiv Atom API. It needs no credentials.
type Arxiv struct {
	client   *http.Client
	endpoint string
}

// NewArxiv builds the provider.
func NewArxiv(client *http.Client, endpoint string) *Arxiv {
	if client == nil {
		client = httpclient.New(httpclient.Options{}, nil)
	}
	if endpoint == "" {
		endpoint = "http://export.arxiv.org/api/query"
	}
	return &Arxiv{client: client, endpoint: endpoint}
}

func (a *Arxiv) Name() string { return ProviderArxiv }

// BuildArxivQuery prefixes the category filter the way the arXiv API expects.
func BuildArxivQuery(query, category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return query
	}
	return fmt.Sprintf("cat:%s AND %s", category, query)
}

func (a *Arxiv) Search(ctx context.Context, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error) {
	sortBy := "relevance"
	if strings.EqualFold(filters.SortBy, "date") {
		sortBy = "submittedDate"
	}
	params := url.Values{}
	params.Set("search_query", BuildArxivQuery(query, filters.Category))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", sortBy)
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderArxiv, Err: serrors.ClassifyNetwork(a.endpoint, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := httpclient.ReadAllWithLimit(resp.Body, arxivMaxResponseBytes)
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderArxiv, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ProviderArxiv, resp.StatusCode)
	}

	feed, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderArxiv, Err: fmt.Errorf("parse feed: %w", err)}
	}

	results := make([]research.SearchResult, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if entry == nil {
			continue
		}
		results = append(results, arxivResult(entry))
	}
	return results, nil
}

func arxivResult(entry *atom.Entry) research.SearchResult {
	absURL := strings.TrimSpace(entry.ID)
	pdfURL := ""
	for _, link := range entry.Links {
		if link == nil {
			continue
		}
		switch {
		case link.Title == "pdf" || link.Type == "application/pdf":
			pdfURL = link.Href
		case link.Rel == "alternate" && link.Href != "":
			absURL = link.Href
		}
	}
	if pdfURL == "" && strings.Contains(absURL, "/abs/") {
		pdfURL = strings.Replace(absURL, "/abs/", "/pdf/", 1)
	}

	authors := make([]string, 0, arxivAuthorLimit+1)
	for i, person := range entry.Authors {
		if i == arxivAuthorLimit {
			authors = append(authors, fmt.Sprintf("et al. (+%d more)", len(entry.Authors)-arxivAuthorLimit))
			break
		}
		if person != nil {
			authors = append(authors, strings.TrimSpace(person.Name))
		}
	}

	categories := make([]string, 0, arxivCategoryLimit)
	for _, cat := range entry.Categories {
		if cat == nil || cat.Term == "" {
			continue
		}
		if len(categories) == arxivCategoryLimit {
			break
		}
		categories = append(categories, cat.Term)
	}

	published := ""
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.Format("2006-01-02")
	}

	id := absURL
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}

	abstract := strings.Join(strings.Fields(entry.Summary), " ")
	return research.SearchResult{
		Title:      strings.Join(strings.Fields(entry.Title), " "),
		URL:        pdfURL,
		Snippet:    textutil.Ellipsize(abstract, arxivAbstractLimit),
		IsDocument: pdfURL != "",
		ArxivID:    id,
		Authors:    authors,
		Categories: categories,
		Published:  published,
		PDFURL:     pdfURL,
	}
}
