package config

import "time"

// Config is the resolved runtime configuration for the research pipeline.
type Config struct {
	BaseDir      string        `mapstructure:"base_dir" yaml:"base_dir"`
	TavilyAPIKey string        `mapstructure:"tavily_api_key" yaml:"tavily_api_key"`
	Fetch        FetchConfig   `mapstructure:"fetch" yaml:"fetch"`
	Search       SearchConfig  `mapstructure:"search" yaml:"search"`
	Extract      ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Budget       BudgetConfig  `mapstructure:"budget" yaml:"budget"`
	Log          LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics      MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing      TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// FetchConfig controls document downloads.
type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxBytes    int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
	UserAgent   string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// SearchConfig controls the search gateway and its providers.
type SearchConfig struct {
	DefaultProvider string        `mapstructure:"default_provider" yaml:"default_provider"`
	MaxResults      int           `mapstructure:"max_results" yaml:"max_results"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheSize       int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	RatePerSecond   float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	ArxivEndpoint   string        `mapstructure:"arxiv_endpoint" yaml:"arxiv_endpoint"`
	TavilyEndpoint  string        `mapstructure:"tavily_endpoint" yaml:"tavily_endpoint"`
	DuckDuckGoURL   string        `mapstructure:"duckduckgo_endpoint" yaml:"duckduckgo_endpoint"`
}

// ExtractConfig controls document text extraction.
type ExtractConfig struct {
	MaxChars int `mapstructure:"max_chars" yaml:"max_chars"`
}

// BudgetConfig holds the advisory caps for one session.
type BudgetConfig struct {
	MaxTurns    int     `mapstructure:"max_turns" yaml:"max_turns"`
	MaxCostUSD  float64 `mapstructure:"max_cost_usd" yaml:"max_cost_usd"`
	MaxSearches int     `mapstructure:"max_searches" yaml:"max_searches"`
}

// LogConfig mirrors logging.Config for file decoding.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	File    string `mapstructure:"file" yaml:"file"`
	Console bool   `mapstructure:"console" yaml:"console"`
	JSON    bool   `mapstructure:"json" yaml:"json"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
}

// TracingConfig selects the trace exporter.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter       string  `mapstructure:"exporter" yaml:"exporter"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `mapstructure:"zipkin_endpoint" yaml:"zipkin_endpoint"`
	SampleRate     float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}
