// Package config loads transport configuration from an optional YAML
// file layered under UISTREAM_-prefixed environment variables.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	API       APIConfig       `koanf:"api"`
	Tokens    TokensConfig    `koanf:"tokens"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type APIConfig struct {
	// BaseURL is the chat API root, typically ending in /v1. The
	// intent detection root is derived from it.
	BaseURL string `koanf:"base_url"`

	// VerifyURL is the subscription verification root. It is a
	// separate service from the chat API.
	VerifyURL string `koanf:"verify_url"`

	// Model is the completion model identifier.
	Model string `koanf:"model"`
}

type TokensConfig struct {
	// Path of the SQLite token store.
	Path string `koanf:"path"`

	// Cookie is the fallback token source, a "key=value; key2=value2"
	// list with percent-encoded values.
	Cookie string `koanf:"cookie"`
}

type TelemetryConfig struct {
	// SampleRatio is the fraction of turns traced; zero (the default)
	// disables tracing.
	SampleRatio float64 `koanf:"sample_ratio"`
}

// Load reads config.yaml (when present) and overlays environment
// variables, e.g. UISTREAM_API__BASE_URL maps to api.base_url.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing file is fine; env vars carry the config.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("UISTREAM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "UISTREAM_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("api.base_url") {
		k.Set("api.base_url", "http://localhost:8033/v1")
	}
	if !k.Exists("api.verify_url") {
		k.Set("api.verify_url", "http://localhost:8033")
	}
	if !k.Exists("api.model") {
		k.Set("api.model", "openai")
	}
	if !k.Exists("tokens.path") {
		k.Set("tokens.path", "uistream.db")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
