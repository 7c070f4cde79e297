package config

import "time"

const (
	DefaultBaseDir         = "research_sessions"
	DefaultFetchTimeout    = 60 * time.Second
	DefaultFetchMaxBytes   = 100 << 20
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultSearchProvider  = "tavily"
	DefaultSearchResults   = 10
	DefaultSearchTimeout   = 30 * time.Second
	DefaultSearchCacheSize = 128
	DefaultSearchCacheTTL  = 15 * time.Minute
	DefaultSearchRate      = 1.0
	DefaultSearchAttempts  = 3
	DefaultArxivEndpoint   = "http://export.arxiv.org/api/query"
	DefaultTavilyEndpoint  = "https://api.tavily.com/search"
	DefaultDuckDuckGoURL   = "https://html.duckduckgo.com/html/"
	DefaultExtractMaxChars = 50000
	DefaultMaxTurns        = 100
	DefaultMaxCostUSD      = 10.0
	DefaultMaxSearches     = 20
	DefaultMetricsListen   = "127.0.0.1:9464"
)

// Default returns the configuration used when no file or environment override is present.
func Default() Config {
	return Config{
		BaseDir: DefaultBaseDir,
		Fetch: FetchConfig{
			Timeout:     DefaultFetchTimeout,
			Concurrency: 1,
			MaxBytes:    DefaultFetchMaxBytes,
			UserAgent:   DefaultUserAgent,
		},
		Search: SearchConfig{
			DefaultProvider: DefaultSearchProvider,
			MaxResults:      DefaultSearchResults,
			Timeout:         DefaultSearchTimeout,
			CacheSize:       DefaultSearchCacheSize,
			CacheTTL:        DefaultSearchCacheTTL,
			RatePerSecond:   DefaultSearchRate,
			MaxAttempts:     DefaultSearchAttempts,
			ArxivEndpoint:   DefaultArxivEndpoint,
			TavilyEndpoint:  DefaultTavilyEndpoint,
			DuckDuckGoURL:   DefaultDuckDuckGoURL,
		},
		Extract: ExtractConfig{MaxChars: DefaultExtractMaxChars},
		Budget: BudgetConfig{
			MaxTurns:    DefaultMaxTurns,
			MaxCostUSD:  DefaultMaxCostUSD,
			MaxSearches: DefaultMaxSearches,
		},
		Log: LogConfig{Level: "info", Console: true},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsListen,
		},
		Tracing: TracingConfig{
			Exporter:   "otlp",
			SampleRate: 1.0,
		},
	}
}
