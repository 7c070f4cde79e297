package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"scholar/internal/infra/filestore"
)

// MarshalYAML renders cfg in the on-disk format Load accepts. The API key is
// blanked so examples never leak credentials.
func MarshalYAML(cfg Config) ([]byte, error) {
	cfg.TavilyAPIKey = ""

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	// yaml.v3 writes durations as nanoseconds; the loader prefers "60s".
	setNested(doc, cfg.Fetch.Timeout.String(), "fetch", "timeout")
	setNested(doc, cfg.Search.Timeout.String(), "search", "timeout")
	setNested(doc, cfg.Search.CacheTTL.String(), "search", "cache_ttl")

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setNested(doc map[string]any, value any, section, key string) {
	inner, ok := doc[section].(map[string]any)
	if !ok {
		return
	}
	inner[key] = value
}

// WriteExample writes the default configuration to path.
func WriteExample(path string) error {
	data, err := MarshalYAML(Default())
	if err != nil {
		return err
	}
	return filestore.AtomicWrite(path, data, 0o644)
}
