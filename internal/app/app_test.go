package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" || cfg.ChunkWords != 1000 || cfg.MinChunkWords != 100 || cfg.MaxChunks != 200 || cfg.MaxBodyBytes != 2<<20 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.AccessTokenTTL != time.Hour || cfg.WorkerRetryDelay != 30*time.Second {
		t.Fatalf("durations = %v %v", cfg.AccessTokenTTL, cfg.WorkerRetryDelay)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":                 "9090",
		"CORS_ALLOWED_ORIGINS": "https://a.example,https://b.example",
		"LLM_CACHE_TTL":        "5m",
		"MAX_UPLOAD_BYTES":     "1024",
	}))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("addr = %q", cfg.HTTPAddr)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LLMCacheTTL != 5*time.Minute || cfg.MaxUploadBytes != 1024 {
		t.Fatalf("overrides = %+v", cfg)
	}

	if _, err := loadConfig(context.Background(), envconfig.MapLookuper(map[string]string{"CHUNK_WORDS": "many"})); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadLLMConfig(t *testing.T) {
	c, err := Config{}.LLMConfig()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if c.DefaultProvider != "mock" {
		t.Fatalf("default = %q", c.DefaultProvider)
	}

	c, err = Config{OpenAIKey: "sk-test", DeepSeekKey: "ds-test", LLMDefaultProvider: "deepseek"}.LLMConfig()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(c.Providers) != 2 || c.DefaultProvider != "deepseek" {
		t.Fatalf("config = %+v", c)
	}

	path := filepath.Join(t.TempDir(), "providers.yaml")
	yaml := "default_provider: mock\nproviders:\n  - name: mock\n  - name: perplexity\n    api_key: ${TEST_PPLX_KEY}\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TEST_PPLX_KEY", "pplx-test")
	c, err = Config{LLMProvidersPath: path, LLMDefaultProvider: "perplexity"}.LLMConfig()
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if c.DefaultProvider != "perplexity" {
		t.Fatalf("default = %q", c.DefaultProvider)
	}
	p, ok := c.Provider("perplexity")
	if !ok || p.APIKey != "pplx-test" || !strings.Contains(p.BaseURL, "perplexity") {
		t.Fatalf("perplexity = %+v", p)
	}
}

func TestNewWiresOfflineApp(t *testing.T) {
	t.Setenv("LOG_MODE", "development")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:apptest?mode=memory&cache=shared")
	t.Setenv("LLM_MOCK", "true")
	t.Setenv("LLM_PROVIDERS_PATH", "")
	t.Setenv("LLM_DEFAULT_PROVIDER", "")
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "PERPLEXITY_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY", "PORT"} {
		t.Setenv(k, "")
	}
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OTEL_ENABLED", "false")

	ctx := context.Background()
	a, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck = %d", rec.Code)
	}
	if a.Clients.Models.DefaultProvider() != "mock" {
		t.Fatalf("default provider = %q", a.Clients.Models.DefaultProvider())
	}
}
