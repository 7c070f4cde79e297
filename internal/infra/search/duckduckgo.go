package search

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"scholar/internal/domain/research"
	"scholar/internal/infra/httpclient"
	serrors "scholar/internal/shared/errors"
)

const ddgMaxResponseBytes = 4 << 20

// DuckDuckGo scrapes the HTML endpoint. It needs no credentials and is the
// fallback when no Tavily key is configured.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
}

// NewDuckDuckGo builds the provider.
func NewDuckDuckGo(client *http.Client, endpoint string) *DuckDuckGo {
	if client == nil {
		client = httpclient.New(httpclient.Options{UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"}, nil)
	}
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com/html/"
	}
	return &DuckDuckGo{client: client, endpoint: endpoint}
}

func (d *DuckDuckGo) Name() string { return ProviderDuckDuckGo }

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error) {
	q := query
	if filters.Academic {
		q += AcademicQuerySuffix
	}
	form := url.Values{}
	form.Set("q", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderDuckDuckGo, Err: serrors.ClassifyNetwork(d.endpoint, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := httpclient.ReadAllWithLimit(resp.Body, ddgMaxResponseBytes)
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderDuckDuckGo, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ProviderDuckDuckGo, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &serrors.ProviderError{Provider: ProviderDuckDuckGo, Err: err}
	}

	results := make([]research.SearchResult, 0, maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= maxResults {
			return false
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveDDGLink(href)
		if target == "" {
			return true
		}
		results = append(results, research.SearchResult{
			Title:   strings.Join(strings.Fields(link.Text()), " "),
			URL:     target,
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " "),
		})
		return true
	})
	return results, nil
}

// resolveDDGLink unwraps DuckDuckGo's "/l/?uddg=<target>" redirect links.
func resolveDDGLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}
