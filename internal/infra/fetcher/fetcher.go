// Package fetcher downloads documents into a session's pdfs/ area.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"scholar/internal/domain/research"
	"scholar/internal/infra/filestore"
	"scholar/internal/infra/httpclient"
	serrors "scholar/internal/shared/errors"
	"scholar/internal/shared/logging"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxBytes  = 100 << 20
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Config tunes downloads.
type Config struct {
	Timeout     time.Duration
	UserAgent   string
	MaxBytes    int64
	Concurrency int
}

// Fetcher performs deduplicated, validated downloads.
type Fetcher struct {
	client      *http.Client
	maxBytes    int64
	concurrency int
	logger      logging.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the outbound client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(logger logging.Logger) Option {
	return func(f *Fetcher) { f.logger = logging.OrNop(logger) }
}

// New builds a Fetcher. Zero config values take the defaults.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	f := &Fetcher{
		maxBytes:    cfg.MaxBytes,
		concurrency: cfg.Concurrency,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httpclient.New(httpclient.Options{Timeout: cfg.Timeout, UserAgent: cfg.UserAgent}, f.logger)
	}
	return f
}

// FetchAll downloads every URL into the session. Per-URL failures never abort
// the batch; the report holds one outcome per URL in request order.
//
// With concurrency above one, the first occurrence of each file name is
// fetched in parallel and repeated names are resolved afterwards in order, so
// outcomes match a sequential run.
func (f *Fetcher) FetchAll(ctx context.Context, h research.Handle, urls []string) research.DownloadReport {
	outcomes := make([]research.DownloadOutcome, len(urls))
	if err := filestore.EnsureDir(h.PDFDir()); err != nil {
		for i, u := range urls {
			outcomes[i] = failure(u, DeriveFilename(u), research.FailureNetwork, fmt.Sprintf("create pdfs dir: %v", err))
		}
		return buildReport(outcomes)
	}

	if f.concurrency <= 1 || len(urls) <= 1 {
		for i, u := range urls {
			outcomes[i] = f.fetchOne(ctx, h, u)
		}
		return buildReport(outcomes)
	}

	seen := make(map[string]bool, len(urls))
	var deferred []int
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(f.concurrency)
	for i, u := range urls {
		name := DeriveFilename(u)
		if seen[name] {
			deferred = append(deferred, i)
			continue
		}
		seen[name] = true
		i, u := i, u
		group.Go(func() error {
			outcomes[i] = f.fetchOne(gctx, h, u)
			return nil
		})
	}
	_ = group.Wait()
	for _, i := range deferred {
		outcomes[i] = f.fetchOne(ctx, h, urls[i])
	}
	return buildReport(outcomes)
}

func buildReport(outcomes []research.DownloadOutcome) research.DownloadReport {
	report := research.DownloadReport{Outcomes: make([]research.DownloadOutcome, 0, len(outcomes))}
	for _, outcome := range outcomes {
		report.Add(outcome)
	}
	return report
}

func (f *Fetcher) fetchOne(ctx context.Context, h research.Handle, rawURL string) research.DownloadOutcome {
	rawURL = strings.TrimSpace(rawURL)
	name := DeriveFilename(rawURL)

	if _, err := httpclient.ValidateURL(rawURL); err != nil {
		return failure(rawURL, name, research.FailureInvalidURL, err.Error())
	}

	target := h.DocumentPath(name)
	if filestore.Exists(target) {
		f.logger.Debug("Skipping %s: %s already exists", rawURL, name)
		return research.DownloadOutcome{URL: rawURL, Filename: name, Status: research.DownloadSkipped}
	}

	body, err := f.download(ctx, rawURL)
	if err != nil {
		kind := classify(err)
		f.logger.Warn("Download failed for %s: %v", rawURL, err)
		return failure(rawURL, name, kind, serrors.Reason(err))
	}

	if err := filestore.AtomicWrite(target, body, 0o644); err != nil {
		f.logger.Error("Write %s failed: %v", target, err)
		return failure(rawURL, name, research.FailureNetwork, fmt.Sprintf("write file: %v", err))
	}
	f.logger.Info("Downloaded %s (%d bytes)", name, len(body))
	return research.DownloadOutcome{URL: rawURL, Filename: name, Status: research.DownloadSuccessful, Bytes: int64(len(body))}
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, serrors.ClassifyNetwork(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serrors.HTTPStatus(rawURL, resp.StatusCode)
	}

	body, err := httpclient.ReadAllWithLimit(resp.Body, f.maxBytes)
	if err != nil {
		if httpclient.IsResponseTooLarge(err) {
			return nil, err
		}
		return nil, serrors.ClassifyNetwork(rawURL, err)
	}

	if err := validatePDF(rawURL, resp.Header.Get("Content-Type"), body); err != nil {
		return nil, err
	}
	return body, nil
}

func classify(err error) research.FailureKind {
	var mismatch *serrors.ContentMismatchError
	if errors.As(err, &mismatch) {
		return research.FailureNotPDF
	}
	var netErr *serrors.NetworkError
	if errors.As(err, &netErr) {
		switch netErr.Kind {
		case serrors.NetworkTimeout:
			return research.FailureTimeout
		case serrors.NetworkHTTPStatus:
			return research.FailureHTTPStatus
		}
	}
	return research.FailureNetwork
}

func failure(rawURL, name string, kind research.FailureKind, reason string) research.DownloadOutcome {
	return research.DownloadOutcome{URL: rawURL, Filename: name, Status: research.DownloadFailed, Kind: kind, Reason: reason}
}
