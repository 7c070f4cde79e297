package config

import (
	"fmt"
	"strings"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Key     string
	Message string
}

// ValidationReport summarizes configuration problems.
type ValidationReport struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// HasErrors reports whether the validation report contains blocking errors.
func (r ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// Problems flattens the report into human-readable lines, errors first.
func (r ValidationReport) Problems() []string {
	lines := make([]string, 0, len(r.Errors)+len(r.Warnings))
	for _, issue := range r.Errors {
		lines = append(lines, fmt.Sprintf("error: %s: %s", issue.Key, issue.Message))
	}
	for _, issue := range r.Warnings {
		lines = append(lines, fmt.Sprintf("warning: %s: %s", issue.Key, issue.Message))
	}
	return lines
}

// Validate checks value ranges. A missing Tavily key is a warning because the
// arXiv and DuckDuckGo providers work without credentials.
func (c Config) Validate() ValidationReport {
	var report ValidationReport
	addErr := func(key, msg string) {
		report.Errors = append(report.Errors, ValidationIssue{Key: key, Message: msg})
	}

	if strings.TrimSpace(c.BaseDir) == "" {
		addErr("base_dir", "must not be empty")
	}
	if c.Fetch.Timeout <= 0 {
		addErr("fetch.timeout", "must be positive")
	}
	if c.Fetch.Concurrency < 1 {
		addErr("fetch.concurrency", "must be at least 1")
	}
	if c.Fetch.MaxBytes <= 0 {
		addErr("fetch.max_bytes", "must be positive")
	}
	switch strings.ToLower(c.Search.DefaultProvider) {
	case "tavily", "arxiv", "duckduckgo":
	default:
		addErr("search.default_provider", fmt.Sprintf("unknown provider %q", c.Search.DefaultProvider))
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 50 {
		addErr("search.max_results", "must be between 1 and 50")
	}
	if c.Search.MaxAttempts < 1 {
		addErr("search.max_attempts", "must be at least 1")
	}
	if c.Extract.MaxChars < 1 {
		addErr("extract.max_chars", "must be positive")
	}
	if c.Budget.MaxTurns < 0 || c.Budget.MaxSearches < 0 || c.Budget.MaxCostUSD < 0 {
		addErr("budget", "caps must not be negative")
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp", "zipkin":
		default:
			addErr("tracing.exporter", fmt.Sprintf("unknown exporter %q", c.Tracing.Exporter))
		}
	}

	if strings.TrimSpace(c.TavilyAPIKey) == "" {
		report.Warnings = append(report.Warnings, ValidationIssue{
			Key:     "tavily_api_key",
			Message: "not set; web_search falls back to duckduckgo (set TAVILY_API_KEY)",
		})
	}
	return report
}
