package di

import (
	"fmt"
	"net/http"

	"scholar/internal/app/dispatch"
	"scholar/internal/app/pipeline"
	"scholar/internal/domain/research"
	"scholar/internal/infra/extract"
	"scholar/internal/infra/fetcher"
	"scholar/internal/infra/httpclient"
	"scholar/internal/infra/notes"
	"scholar/internal/infra/observability"
	"scholar/internal/infra/report"
	"scholar/internal/infra/search"
	"scholar/internal/infra/session"
	"scholar/internal/shared/config"
	"scholar/internal/shared/logging"
)

// Option customizes the builder.
type Option func(*containerBuilder)

// WithObserver forwards engine progress snapshots.
func WithObserver(observer dispatch.Observer) Option {
	return func(b *containerBuilder) { b.observer = observer }
}

// WithResultSink forwards tool results back to the reasoning engine.
func WithResultSink(sink dispatch.ResultSink) Option {
	return func(b *containerBuilder) { b.sink = sink }
}

// WithHTTPClient replaces the outbound client for fetches and searches.
func WithHTTPClient(client *http.Client) Option {
	return func(b *containerBuilder) { b.client = client }
}

type containerBuilder struct {
	cfg      config.Config
	logger   logging.Logger
	observer dispatch.Observer
	sink     dispatch.ResultSink
	client   *http.Client
}

func newContainerBuilder(cfg config.Config, opts ...Option) *containerBuilder {
	b := &containerBuilder{cfg: cfg, logger: logging.NewComponentLogger("DI")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *containerBuilder) Build() (*Container, error) {
	b.logger.Debug("Building container with base_dir=%s", b.cfg.BaseDir)

	metrics, err := observability.NewMetricsCollector(b.cfg.Metrics, logging.NewComponentLogger("Metrics"))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	tracer, err := observability.NewTracerProvider(b.cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	sessions := session.New(b.cfg.BaseDir, session.WithLogger(logging.NewComponentLogger("Sessions")))
	webProvider := b.webProvider()
	gateway := b.buildGateway(webProvider)

	fetch := fetcher.New(fetcher.Config{
		Timeout:     b.cfg.Fetch.Timeout,
		UserAgent:   b.cfg.Fetch.UserAgent,
		MaxBytes:    b.cfg.Fetch.MaxBytes,
		Concurrency: b.cfg.Fetch.Concurrency,
	}, fetcher.WithHTTPClient(b.client), fetcher.WithLogger(logging.NewComponentLogger("Fetcher")))
	extractor := extract.New(
		extract.WithMaxChars(b.cfg.Extract.MaxChars),
		extract.WithLogger(logging.NewComponentLogger("Extractor")),
	)

	engine, err := dispatch.NewEngine(dispatch.Deps{
		Search:    gateway,
		Fetcher:   fetch,
		Extractor: extractor,
		Notes:     notes.New(notes.WithLogger(logging.NewComponentLogger("Notes"))),
		Reports:   report.New(report.WithLogger(logging.NewComponentLogger("Report"))),
		Sessions:  sessions,
	}, dispatch.Config{
		Budget: research.Budget{
			MaxTurns:    b.cfg.Budget.MaxTurns,
			MaxCostUSD:  b.cfg.Budget.MaxCostUSD,
			MaxSearches: b.cfg.Budget.MaxSearches,
		},
		WebProvider: webProvider,
		MaxResults:  b.cfg.Search.MaxResults,
	},
		dispatch.WithObserver(b.observer),
		dispatch.WithResultSink(b.sink),
		dispatch.WithMetrics(metrics),
		dispatch.WithTracer(tracer),
		dispatch.WithLogger(logging.NewComponentLogger("Dispatch")),
	)
	if err != nil {
		return nil, err
	}

	service := pipeline.NewService(sessions, engine, pipeline.Limits{
		MaxTurns:   b.cfg.Budget.MaxTurns,
		MaxCostUSD: b.cfg.Budget.MaxCostUSD,
	}, logging.NewComponentLogger("Pipeline"))

	b.logger.Info("Container built successfully")
	return &Container{
		Config:   b.cfg,
		Sessions: sessions,
		Search:   gateway,
		Engine:   engine,
		Pipeline: service,
		Metrics:  metrics,
		Tracer:   tracer,
	}, nil
}

func (b *containerBuilder) searchClient() *http.Client {
	if b.client != nil {
		return b.client
	}
	return httpclient.New(httpclient.Options{
		Timeout:   b.cfg.Search.Timeout,
		UserAgent: b.cfg.Fetch.UserAgent,
	}, logging.NewComponentLogger("Search"))
}

func (b *containerBuilder) buildGateway(defaultProvider string) *search.Gateway {
	client := b.searchClient()
	providers := []search.Provider{
		search.NewTavily(client, b.cfg.TavilyAPIKey, b.cfg.Search.TavilyEndpoint),
		search.NewArxiv(client, b.cfg.Search.ArxivEndpoint),
		search.NewDuckDuckGo(client, b.cfg.Search.DuckDuckGoURL),
	}
	return search.NewGateway(search.Config{
		DefaultProvider: defaultProvider,
		CacheSize:       b.cfg.Search.CacheSize,
		CacheTTL:        b.cfg.Search.CacheTTL,
		RatePerSecond:   b.cfg.Search.RatePerSecond,
		MaxAttempts:     b.cfg.Search.MaxAttempts,
	}, providers, search.WithLogger(logging.NewComponentLogger("Search")))
}

// webProvider falls back to DuckDuckGo when Tavily is selected without a key.
func (b *containerBuilder) webProvider() string {
	provider := b.cfg.Search.DefaultProvider
	if provider == "" {
		provider = search.ProviderTavily
	}
	if provider == search.ProviderTavily && b.cfg.TavilyAPIKey == "" {
		b.logger.Warn("TAVILY_API_KEY not set; web_search falls back to %s", search.ProviderDuckDuckGo)
		return search.ProviderDuckDuckGo
	}
	return provider
}
