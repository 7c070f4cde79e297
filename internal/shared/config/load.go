package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"scholar/internal/infra/filestore"
)

const envPrefix = "SCHOLAR"

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	configFile string
	searchDirs []string
	lookupEnv  func(string) (string, bool)
}

// WithFile reads configuration from an explicit path instead of the search directories.
func WithFile(path string) Option {
	return func(o *loadOptions) { o.configFile = strings.TrimSpace(path) }
}

// WithSearchDirs overrides where scholar.yaml is looked up.
func WithSearchDirs(dirs ...string) Option {
	return func(o *loadOptions) { o.searchDirs = dirs }
}

// WithEnvLookup replaces os.LookupEnv, mainly for tests.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.lookupEnv = lookup }
}

// Load resolves defaults, the optional YAML file and environment overrides, in that order.
func Load(opts ...Option) (Config, error) {
	options := loadOptions{lookupEnv: os.LookupEnv}
	if home, err := os.UserHomeDir(); err == nil {
		options.searchDirs = []string{".", filepath.Join(home, ".scholar")}
	} else {
		options.searchDirs = []string{"."}
	}
	for _, opt := range opts {
		opt(&options)
	}

	v := viper.New()
	setDefaults(v, Default())

	if options.configFile != "" {
		v.SetConfigFile(options.configFile)
	} else {
		v.SetConfigName("scholar")
		v.SetConfigType("yaml")
		for _, dir := range options.searchDirs {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if options.configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(v, options.lookupEnv)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.BaseDir = filestore.ResolvePath(cfg.BaseDir, DefaultBaseDir)
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("base_dir", cfg.BaseDir)
	v.SetDefault("tavily_api_key", cfg.TavilyAPIKey)
	v.SetDefault("fetch.timeout", cfg.Fetch.Timeout)
	v.SetDefault("fetch.concurrency", cfg.Fetch.Concurrency)
	v.SetDefault("fetch.max_bytes", cfg.Fetch.MaxBytes)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("search.default_provider", cfg.Search.DefaultProvider)
	v.SetDefault("search.max_results", cfg.Search.MaxResults)
	v.SetDefault("search.timeout", cfg.Search.Timeout)
	v.SetDefault("search.cache_size", cfg.Search.CacheSize)
	v.SetDefault("search.cache_ttl", cfg.Search.CacheTTL)
	v.SetDefault("search.rate_per_second", cfg.Search.RatePerSecond)
	v.SetDefault("search.max_attempts", cfg.Search.MaxAttempts)
	v.SetDefault("search.arxiv_endpoint", cfg.Search.ArxivEndpoint)
	v.SetDefault("search.tavily_endpoint", cfg.Search.TavilyEndpoint)
	v.SetDefault("search.duckduckgo_endpoint", cfg.Search.DuckDuckGoURL)
	v.SetDefault("extract.max_chars", cfg.Extract.MaxChars)
	v.SetDefault("budget.max_turns", cfg.Budget.MaxTurns)
	v.SetDefault("budget.max_cost_usd", cfg.Budget.MaxCostUSD)
	v.SetDefault("budget.max_searches", cfg.Budget.MaxSearches)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.console", cfg.Log.Console)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.exporter", cfg.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", cfg.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.zipkin_endpoint", cfg.Tracing.ZipkinEndpoint)
	v.SetDefault("tracing.sample_rate", cfg.Tracing.SampleRate)
}

// envAliases are the unprefixed variable names the research scripts have always read.
var envAliases = map[string]string{
	"TAVILY_API_KEY":        "tavily_api_key",
	"RESEARCH_SESSIONS_DIR": "base_dir",
}

func applyEnv(v *viper.Viper, lookup func(string) (string, bool)) {
	for _, key := range v.AllKeys() {
		name := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			v.Set(key, value)
		}
	}
	for envName, key := range envAliases {
		prefixed := envPrefix + "_" + strings.ToUpper(key)
		if _, ok := lookup(prefixed); ok {
			continue
		}
		if value, ok := lookup(envName); ok && strings.TrimSpace(value) != "" {
			v.Set(key, value)
		}
	}
}
