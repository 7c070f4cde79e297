package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// NetworkKind classifies a failed network attempt.
type NetworkKind string

const (
	NetworkTimeout    NetworkKind = "timeout"
	NetworkHTTPStatus NetworkKind = "http_status"
	NetworkOther      NetworkKind = "other"
)

// ConfigurationError reports a missing or unusable configuration value such as
// an API key. It is fatal to the operation, never to the session.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// NotFoundError reports a referenced document, note folder or session that does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// ValidationError reports malformed tool input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NetworkError describes one failed network attempt.
type NetworkError struct {
	Kind       NetworkKind
	StatusCode int
	URL        string
	Err        error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case NetworkTimeout:
		return "timeout"
	case NetworkHTTPStatus:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "network error"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ContentMismatchError reports a fetched body that is not the expected document type.
type ContentMismatchError struct {
	ContentType string
	Detail      string
}

func (e *ContentMismatchError) Error() string {
	if e.Detail != "" {
		return "not a PDF (" + e.Detail + ")"
	}
	return "not a PDF"
}

// ExtractionWarning marks a document that opened but produced no usable text.
// Callers treat it as a result, not a failure.
type ExtractionWarning struct {
	Filename string
	Reason   string
}

func (e *ExtractionWarning) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no text extracted from %s: %s", e.Filename, e.Reason)
	}
	return "no text extracted from " + e.Filename
}

// ProviderError reports a search provider failure.
type ProviderError struct {
	Provider    string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *ProviderError) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("%s: rate limited", e.Provider)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": provider error"
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// BudgetExceededError is returned for tool calls refused after a budget cap was reached.
type BudgetExceededError struct {
	Limit string
	Used  float64
	Max   float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s (%g of %g)", e.Limit, e.Used, e.Max)
}

// IsNotConfigured reports whether err stems from missing configuration.
func IsNotConfigured(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsWarning reports whether err is an ExtractionWarning.
func IsWarning(err error) bool {
	var w *ExtractionWarning
	return errors.As(err, &w)
}

// IsTransient checks if an error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Typed domain errors are decided by their fields.
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		if provErr.RateLimited {
			return true
		}
		if provErr.StatusCode > 0 {
			return isTransientHTTPStatus(provErr.StatusCode)
		}
		if provErr.Err != nil {
			return IsTransient(provErr.Err)
		}
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		switch netErr.Kind {
		case NetworkTimeout:
			return true
		case NetworkHTTPStatus:
			return isTransientHTTPStatus(netErr.StatusCode)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if isNetworkError(err) {
		return true
	}
	return isSyscallError(err)
}

// ClassifyNetwork wraps a transport-level error from an HTTP attempt.
func ClassifyNetwork(url string, err error) *NetworkError {
	if err == nil {
		return nil
	}
	var existing *NetworkError
	if errors.As(err, &existing) {
		return existing
	}
	kind := NetworkOther
	if isTimeout(err) {
		kind = NetworkTimeout
	}
	return &NetworkError{Kind: kind, URL: url, Err: err}
}

// HTTPStatus builds the NetworkError for a non-2xx response.
func HTTPStatus(url string, status int) *NetworkError {
	return &NetworkError{Kind: NetworkHTTPStatus, StatusCode: status, URL: url}
}

// Reason renders a short, user-facing reason string for an item failure.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Error()
	}
	var mismatch *ContentMismatchError
	if errors.As(err, &mismatch) {
		return mismatch.Error()
	}
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func isNetworkError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"unexpected eof",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func isSyscallError(err error) bool {
	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}
	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
