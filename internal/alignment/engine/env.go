package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/platform/config"
)

const (
	// EnvEngineBaseURL names the API root environment variable.
	EnvEngineBaseURL = "CONCORD_ENGINE_BASE_URL"
	// EnvEngineAPIKey names the credential environment variable.
	EnvEngineAPIKey = "CONCORD_ENGINE_API_KEY"
	// EnvEngineModel names the model environment variable.
	EnvEngineModel = "CONCORD_ENGINE_MODEL"
	// EnvEngineTimeout names the analysis budget environment variable.
	EnvEngineTimeout = "CONCORD_ENGINE_TIMEOUT"
	// EnvEngineFallbackEnabled names the fallback toggle environment variable.
	EnvEngineFallbackEnabled = "CONCORD_ENGINE_FALLBACK_ENABLED"
)

// engineEnv holds raw env values before post-parse validation.
type engineEnv struct {
	BaseURL         string        `env:"CONCORD_ENGINE_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey          string        `env:"CONCORD_ENGINE_API_KEY"`
	Model           string        `env:"CONCORD_ENGINE_MODEL" envDefault:"gpt-4o-mini"`
	Timeout         time.Duration `env:"CONCORD_ENGINE_TIMEOUT" envDefault:"30s"`
	FallbackEnabled bool          `env:"CONCORD_ENGINE_FALLBACK_ENABLED" envDefault:"true"`
}

// Config captures reasoning engine settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout caps one full analysis run including the fallback.
	Timeout         time.Duration
	FallbackEnabled bool
}

// LoadConfigFromEnv reads engine configuration. An empty API key is
// allowed only while the fallback is enabled; the curated fallback
// then serves every analysis.
func LoadConfigFromEnv() (Config, error) {
	var raw engineEnv
	if err := config.ParseEnv("engine", &raw); err != nil {
		return Config{}, err
	}
	cfg := Config{
		BaseURL:         strings.TrimSpace(raw.BaseURL),
		APIKey:          strings.TrimSpace(raw.APIKey),
		Model:           strings.TrimSpace(raw.Model),
		Timeout:         raw.Timeout,
		FallbackEnabled: raw.FallbackEnabled,
	}
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("%s is required", EnvEngineBaseURL)
	}
	if cfg.Model == "" {
		return Config{}, fmt.Errorf("%s is required", EnvEngineModel)
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", EnvEngineTimeout)
	}
	if cfg.APIKey == "" && !cfg.FallbackEnabled {
		return Config{}, fmt.Errorf("%s is required when the fallback is disabled", EnvEngineAPIKey)
	}
	return cfg, nil
}

// NewProvider assembles the provider chain for the configuration.
// Without an API key the curated fallback serves alone; with one, the
// primary is tried first and the fallback catches failures when
// enabled.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		if !cfg.FallbackEnabled {
			return nil, errors.New("engine api key is required when the fallback is disabled")
		}
		return CuratedFallback{}, nil
	}
	primary, err := NewOpenAIProvider(OpenAIConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	chain := Failover{Primary: primary}
	if cfg.FallbackEnabled {
		chain.Fallback = CuratedFallback{}
	}
	return chain, nil
}
