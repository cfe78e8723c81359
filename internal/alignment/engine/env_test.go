package engine

import (
	"os"
	"testing"
	"time"
)

// clearEngineEnv unsets every engine variable while keeping the
// test-scoped restore that t.Setenv registers.
func clearEngineEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvEngineBaseURL, EnvEngineAPIKey, EnvEngineModel, EnvEngineTimeout, EnvEngineFallbackEnabled} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv(EnvEngineAPIKey, "sk-test")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
	if !cfg.FallbackEnabled {
		t.Fatal("expected fallback enabled by default")
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv(EnvEngineBaseURL, "https://engine.example.com/v1")
	t.Setenv(EnvEngineAPIKey, "sk-test")
	t.Setenv(EnvEngineModel, "gpt-4o")
	t.Setenv(EnvEngineTimeout, "45s")
	t.Setenv(EnvEngineFallbackEnabled, "false")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseURL != "https://engine.example.com/v1" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.Model != "gpt-4o" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.Timeout != 45*time.Second {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
	if cfg.FallbackEnabled {
		t.Fatal("expected fallback disabled")
	}
}

func TestLoadConfigFromEnvMissingKeyWithFallbackDisabled(t *testing.T) {
	clearEngineEnv(t)
	t.Setenv(EnvEngineFallbackEnabled, "false")

	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected config error")
	}
}

func TestLoadConfigFromEnvMissingKeyWithFallbackEnabled(t *testing.T) {
	clearEngineEnv(t)

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIKey != "" {
		t.Fatalf("api key = %q, want empty", cfg.APIKey)
	}
}

func TestNewProviderShapes(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "no key falls back to curated provider",
			cfg:  Config{BaseURL: "https://engine.example.com/v1", Model: "gpt-4o-mini", Timeout: time.Second, FallbackEnabled: true},
			want: "curated",
		},
		{
			name: "key with fallback",
			cfg:  Config{BaseURL: "https://engine.example.com/v1", APIKey: "sk-1", Model: "gpt-4o-mini", Timeout: time.Second, FallbackEnabled: true},
			want: "failover-with-fallback",
		},
		{
			name: "key without fallback",
			cfg:  Config{BaseURL: "https://engine.example.com/v1", APIKey: "sk-1", Model: "gpt-4o-mini", Timeout: time.Second},
			want: "failover-primary-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}
			switch tt.want {
			case "curated":
				if _, ok := provider.(CuratedFallback); !ok {
					t.Fatalf("provider type = %T, want CuratedFallback", provider)
				}
			case "failover-with-fallback":
				chain, ok := provider.(Failover)
				if !ok {
					t.Fatalf("provider type = %T, want Failover", provider)
				}
				if chain.Fallback == nil {
					t.Fatal("expected fallback in chain")
				}
			case "failover-primary-only":
				chain, ok := provider.(Failover)
				if !ok {
					t.Fatalf("provider type = %T, want Failover", provider)
				}
				if chain.Fallback != nil {
					t.Fatal("expected no fallback in chain")
				}
			}
		})
	}
}

func TestNewProviderRequiresKeyWhenFallbackDisabled(t *testing.T) {
	cfg := Config{BaseURL: "https://engine.example.com/v1", Model: "gpt-4o-mini", Timeout: time.Second}
	if _, err := NewProvider(cfg); err == nil {
		t.Fatal("expected configuration error")
	}
}
