package llm

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromKeysDefaults(t *testing.T) {
	cfg, err := FromKeys(Keys{Anthropic: "a-key", DeepSeek: "d-key"})
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("providers = %d", len(cfg.Providers))
	}
	if cfg.DefaultProvider != "anthropic" {
		t.Fatalf("default = %q", cfg.DefaultProvider)
	}
	ds, ok := cfg.Provider("DeepSeek")
	if !ok {
		t.Fatalf("deepseek missing")
	}
	if ds.Type != TypeOAIHTTP || ds.BaseURL != "https://api.deepseek.com" || ds.JSONSchema.Mode != SchemaModeJSONObject {
		t.Fatalf("deepseek defaults not applied: %+v", ds)
	}
	if ds.Timeout.Duration != 120*time.Second || ds.JSONSchema.MaxRetries != 2 {
		t.Fatalf("generic defaults not applied: %+v", ds)
	}
}

func TestFromKeysFallsBackToMock(t *testing.T) {
	cfg, err := FromKeys(Keys{})
	if err != nil {
		t.Fatalf("FromKeys: %v", err)
	}
	if cfg.DefaultProvider != "mock" || len(cfg.Providers) != 1 {
		t.Fatalf("unexpected %+v", cfg)
	}
}

func TestFromKeysUnknownDefault(t *testing.T) {
	if _, err := FromKeys(Keys{OpenAI: "k", DefaultProvider: "perplexity"}); err == nil {
		t.Fatalf("expected error for unconfigured default provider")
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("TEST_PPLX_KEY", "pplx-secret")
	path := filepath.Join(t.TempDir(), "providers.yaml")
	body := `
default_provider: perplexity
providers:
  - name: perplexity
    api_key: ${TEST_PPLX_KEY}
    timeout: 45s
    default_model: sonar
  - name: local
    type: oai_http
    base_url: http://localhost:8000
    api_key: none
    models: [llama-3]
    json_schema:
      mode: guided_json
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	p, _ := cfg.Provider("perplexity")
	if p.APIKey != "pplx-secret" || p.Timeout.Duration != 45*time.Second || p.DefaultModel != "sonar" {
		t.Fatalf("perplexity = %+v", p)
	}
	local, _ := cfg.Provider("local")
	if local.DefaultModel != "llama-3" || local.JSONSchema.Mode != SchemaModeGuided {
		t.Fatalf("local = %+v", local)
	}
}

func TestNormalizeRejectsBadMode(t *testing.T) {
	cfg := Config{Providers: []ProviderConfig{{Name: "mock", JSONSchema: JSONSchemaConfig{Mode: "telepathy"}}}}
	if err := cfg.Normalize(); err == nil {
		t.Fatalf("expected error")
	}
}
