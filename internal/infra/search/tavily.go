package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"scholar/internal/domain/research"
	"scholar/internal/infra/httpclient"
	serrors "scholar/internal/shared/errors"
	jsonx "scholar/internal/shared/json"
)

const tavilyMaxResponseBytes = 4 << 20

// Tavily queries the Tavily search API.
type Tavily struct {
	client   *http.Client
	apiKey   string
	endpoint string
}

// NewTavily builds the provider. An empty apiKey is reported per call as a
// ConfigurationError so the rest of the gateway keeps working.
func NewTavily(client *http.Client, apiKey, endpoint string) *Tavily {
	if client == nil {
		client = httpclient.New(httpclient.Options{}, nil)
	}
	if endpoint == "" {
		endpoint = "https://api.tavily.com/search"
	}
	return &Tavily{client: client, apiKey: strings.TrimSpace(apiKey), endpoint: endpoint}
}

func (t *Tavily) Name() string { return ProviderTavily }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error) {
	if t.apiKey == "" {
		return nil, &serrors.ConfigurationError{
			Setting: "tavily_api_key",
			Message: "web search not configured: TAVILY_API_KEY is not set",
		}
	}

	body := tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query,
		MaxResults:     maxResults,
		SearchDepth:    "advanced",
		IncludeDomains: filters.Domains,
	}
	if filters.Academic {
		body.Query = query + AcademicQuerySuffix
		if len(body.IncludeDomains) == 0 {
			body.IncludeDomains = AcademicDomains
		}
	}
	payload, err := jsonx.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderTavily, Err: serrors.ClassifyNetwork(t.endpoint, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := httpclient.ReadAllWithLimit(resp.Body, tavilyMaxResponseBytes)
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderTavily, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ProviderTavily, resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := jsonx.Unmarshal(data, &parsed); err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderTavily, Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]research.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, research.SearchResult{
			Title:   strings.TrimSpace(r.Title),
			URL:     strings.TrimSpace(r.URL),
			Snippet: strings.TrimSpace(r.Content),
		})
	}
	return results, nil
}

func statusError(provider string, status int) error {
	return &serrors.ProviderError{
		Provider:    provider,
		StatusCode:  status,
		RateLimited: status == http.StatusTooManyRequests,
	}
}
