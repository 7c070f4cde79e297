package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"scholar/internal/domain/research"
	serrors "scholar/internal/shared/errors"
	jsonx "scholar/internal/shared/json"
	"scholar/internal/shared/logging"
)

const (
	defaultMaxResults   = 10
	maxResultsCap       = 50
	defaultCacheSize    = 128
	defaultCacheTTL     = 15 * time.Minute
	defaultMaxAttempts  = 3
	defaultRatePerSec   = 1.0
	defaultProviderName = ProviderTavily
)

// Config tunes the gateway.
type Config struct {
	DefaultProvider string
	CacheSize       int
	CacheTTL        time.Duration
	RatePerSecond   float64
	MaxAttempts     int
}

type cacheEntry struct {
	results  []research.SearchResult
	storedAt time.Time
}

// Gateway routes queries to providers, normalizes their results and shields
// them with a TTL cache, a per-provider rate limit and transient-error retry.
// Empty result lists are returned as-is and never retried.
type Gateway struct {
	providers       map[string]Provider
	limiters        map[string]*rate.Limiter
	defaultProvider string
	cache           *lru.Cache[string, cacheEntry]
	ttl             time.Duration
	maxAttempts     int
	buildBackoff    func() backoff.BackOff
	now             func() time.Time
	logger          logging.Logger
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithBackoff replaces the retry schedule, mainly for tests.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(g *Gateway) {
		if factory != nil {
			g.buildBackoff = factory
		}
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger logging.Logger) Option {
	return func(g *Gateway) { g.logger = logging.OrNop(logger) }
}

// NewGateway registers providers by name.
func NewGateway(cfg Config, providers []Provider, opts ...Option) *Gateway {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSec
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = defaultProviderName
	}

	// lru.New only errors on non-positive size which we guard above.
	cache, _ := lru.New[string, cacheEntry](cfg.CacheSize)

	g := &Gateway{
		providers:       make(map[string]Provider, len(providers)),
		limiters:        make(map[string]*rate.Limiter, len(providers)),
		defaultProvider: strings.ToLower(cfg.DefaultProvider),
		cache:           cache,
		ttl:             cfg.CacheTTL,
		maxAttempts:     cfg.MaxAttempts,
		now:             time.Now,
		logger:          logging.Nop(),
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 20 * time.Second
			return b
		},
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := strings.ToLower(p.Name())
		g.providers[name] = p
		g.limiters[name] = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Providers lists registered provider names in sorted order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search runs query against provider ("" selects the default).
func (g *Gateway) Search(ctx context.Context, provider, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &serrors.ValidationError{Field: "query", Message: "must not be empty"}
	}
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = g.defaultProvider
	}
	p, ok := g.providers[name]
	if !ok {
		return nil, &serrors.ValidationError{Field: "provider", Message: fmt.Sprintf("unknown search provider %q", provider)}
	}
	switch {
	case maxResults <= 0:
		maxResults = defaultMaxResults
	case maxResults > maxResultsCap:
		maxResults = maxResultsCap
	}

	key := cacheKey(name, query, maxResults, filters)
	if entry, ok := g.cache.Get(key); ok {
		if g.now().Sub(entry.storedAt) < g.ttl {
			g.logger.Debug("Search cache hit for %s %q", name, query)
			return cloneResults(entry.results), nil
		}
		g.cache.Remove(key)
	}

	results, err := g.searchWithRetry(ctx, name, p, query, maxResults, filters)
	if err != nil {
		return nil, err
	}

	for i := range results {
		results[i].Provider = name
		if !results[i].IsDocument {
			results[i].IsDocument = IsDocumentURL(results[i].URL)
		}
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	g.cache.Add(key, cacheEntry{results: cloneResults(results), storedAt: g.now()})
	g.logger.Info("Search %s %q returned %d results", name, query, len(results))
	return results, nil
}

func (g *Gateway) searchWithRetry(ctx context.Context, name string, p Provider, query string, maxResults int, filters research.SearchFilters) ([]research.SearchResult, error) {
	var results []research.SearchResult
	attempt := 0
	operation := func() error {
		attempt++
		if err := g.limiters[name].Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		found, err := p.Search(ctx, query, maxResults, filters)
		if err != nil {
			if serrors.IsTransient(err) && attempt < g.maxAttempts {
				g.logger.Warn("Search %s attempt %d failed, retrying: %v", name, attempt, err)
				return err
			}
			return backoff.Permanent(err)
		}
		results = found
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(g.buildBackoff(), uint64(g.maxAttempts-1)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	if results == nil {
		results = []research.SearchResult{}
	}
	return results, nil
}

func cacheKey(provider, query string, maxResults int, filters research.SearchFilters) string {
	encoded, err := jsonx.Marshal(filters)
	if err != nil {
		encoded = nil
	}
	return fmt.Sprintf("%s|%d|%s|%s", provider, maxResults, strings.ToLower(query), encoded)
}

func cloneResults(in []research.SearchResult) []research.SearchResult {
	out := make([]research.SearchResult, len(in))
	copy(out, in)
	return out
}
