package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(WithSearchDirs(t.TempDir()), WithEnvLookup(envMap(nil)))
	require.NoError(t, err)

	require.Equal(t, DefaultBaseDir, cfg.BaseDir)
	require.Equal(t, 60*time.Second, cfg.Fetch.Timeout)
	require.Equal(t, DefaultExtractMaxChars, cfg.Extract.MaxChars)
	require.Equal(t, "tavily", cfg.Search.DefaultProvider)
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	content := []byte("base_dir: /tmp/from-file\nfetch:\n  timeout: 5s\n  concurrency: 4\nsearch:\n  max_results: 7\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scholar.yaml"), content, 0o644))

	cfg, err := Load(WithSearchDirs(dir), WithEnvLookup(envMap(map[string]string{
		"SCHOLAR_SEARCH_MAX_RESULTS": "3",
		"TAVILY_API_KEY":             "tvly-test",
	})))
	require.NoError(t, err)

	require.Equal(t, "/tmp/from-file", cfg.BaseDir)
	require.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	require.Equal(t, 4, cfg.Fetch.Concurrency)
	require.Equal(t, 3, cfg.Search.MaxResults)
	require.Equal(t, "tvly-test", cfg.TavilyAPIKey)
}

func TestPrefixedEnvBeatsAlias(t *testing.T) {
	cfg, err := Load(WithSearchDirs(t.TempDir()), WithEnvLookup(envMap(map[string]string{
		"SCHOLAR_BASE_DIR":      "/prefixed",
		"RESEARCH_SESSIONS_DIR": "/alias",
	})))
	require.NoError(t, err)
	require.Equal(t, "/prefixed", cfg.BaseDir)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "missing.yaml")), WithEnvLookup(envMap(nil)))
	require.Error(t, err)
}

func TestExampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scholar.yaml")
	require.NoError(t, WriteExample(path))

	cfg, err := Load(WithFile(path), WithEnvLookup(envMap(nil)))
	require.NoError(t, err)
	require.Equal(t, Default().Fetch.Timeout, cfg.Fetch.Timeout)
	require.Equal(t, Default().Search.CacheTTL, cfg.Search.CacheTTL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	report := cfg.Validate()
	require.False(t, report.HasErrors())
	require.Len(t, report.Warnings, 1)

	cfg.Fetch.Concurrency = 0
	cfg.Search.DefaultProvider = "bing"
	report = cfg.Validate()
	require.True(t, report.HasErrors())
	require.Len(t, report.Errors, 2)
	require.Contains(t, report.Problems()[0], "fetch.concurrency")
}
