package errors

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "configuration error", err: &ConfigurationError{Setting: "tavily_api_key"}, expected: false},
		{name: "rate limited provider", err: &ProviderError{Provider: "tavily", RateLimited: true}, expected: true},
		{name: "provider 503", err: &ProviderError{Provider: "arxiv", StatusCode: 503}, expected: true},
		{name: "provider 400", err: &ProviderError{Provider: "arxiv", StatusCode: 400}, expected: false},
		{name: "wrapped timeout", err: fmt.Errorf("search: %w", &NetworkError{Kind: NetworkTimeout}), expected: true},
		{name: "http 404", err: HTTPStatus("https://x", 404), expected: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, expected: true},
		{name: "canceled", err: context.Canceled, expected: false},
		{name: "connection reset", err: syscall.ECONNRESET, expected: true},
		{name: "plain error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClassifyNetwork(t *testing.T) {
	if got := ClassifyNetwork("u", context.DeadlineExceeded); got.Kind != NetworkTimeout {
		t.Fatalf("expected timeout kind, got %s", got.Kind)
	}
	if got := ClassifyNetwork("u", errors.New("dial tcp: no such host")); got.Kind != NetworkOther {
		t.Fatalf("expected other kind, got %s", got.Kind)
	}
	if ClassifyNetwork("u", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestReason(t *testing.T) {
	cases := map[string]error{
		"timeout":            fmt.Errorf("get: %w", &NetworkError{Kind: NetworkTimeout}),
		"HTTP 403":           HTTPStatus("https://x", 403),
		"not a PDF":          &ContentMismatchError{ContentType: "text/html"},
		"not a PDF (Denied)": &ContentMismatchError{Detail: "Denied"},
	}
	for want, err := range cases {
		if got := Reason(err); got != want {
			t.Fatalf("Reason(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", &NotFoundError{Kind: "document", Name: "a.pdf"})
	if !IsNotFound(wrapped) {
		t.Fatalf("expected not found")
	}
	if !IsNotConfigured(&ConfigurationError{Setting: "k"}) {
		t.Fatalf("expected not configured")
	}
	if !IsValidation(&ValidationError{Field: "type"}) {
		t.Fatalf("expected validation")
	}
	if !IsWarning(&ExtractionWarning{Filename: "a.pdf"}) {
		t.Fatalf("expected warning")
	}
}
