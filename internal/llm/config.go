package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ProviderType string

const (
	TypeOpenAI    ProviderType = "openai"
	TypeAnthropic ProviderType = "anthropic"
	TypeOAIHTTP   ProviderType = "oai_http"
	TypeGemini    ProviderType = "gemini"
	TypeMock      ProviderType = "mock"
)

// JSON schema enforcement modes for OpenAI-compatible HTTP engines.
const (
	SchemaModeAuto       = "auto"
	SchemaModeNone       = "none"
	SchemaModeGuided     = "guided_json"
	SchemaModeJSONObject = "json_object"
	SchemaModeJSONSchema = "json_schema"
	SchemaModePrompt     = "prompt"
)

// Duration accepts "30s" style strings or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

type JSONSchemaConfig struct {
	Mode           string `yaml:"mode" json:"mode"`
	MaxRetries     int    `yaml:"max_retries" json:"max_retries"`
	MaxPromptBytes int    `yaml:"max_prompt_bytes" json:"max_prompt_bytes"`
}

type ProviderConfig struct {
	Name                string           `yaml:"name" json:"name"`
	Type                ProviderType     `yaml:"type" json:"type"`
	BaseURL             string           `yaml:"base_url" json:"base_url,omitempty"`
	APIKey              string           `yaml:"api_key" json:"-"`
	ChatCompletionsPath string           `yaml:"chat_completions_path" json:"-"`
	DefaultModel        string           `yaml:"default_model" json:"default_model"`
	Models              []string         `yaml:"models" json:"models"`
	Timeout             Duration         `yaml:"timeout" json:"-"`
	StreamTimeout       Duration         `yaml:"stream_timeout" json:"-"`
	MaxRetries          int              `yaml:"max_retries" json:"-"`
	MaxTokens           int              `yaml:"max_tokens" json:"-"`
	JSONSchema          JSONSchemaConfig `yaml:"json_schema" json:"-"`
}

type Config struct {
	DefaultProvider string           `yaml:"default_provider"`
	Providers       []ProviderConfig `yaml:"providers"`
}

// Keys is the environment fallback used when no providers file is configured.
type Keys struct {
	OpenAI          string
	Anthropic       string
	Perplexity      string
	DeepSeek        string
	Gemini          string
	DefaultProvider string
	// Mock registers the offline engine even when real keys are present.
	Mock bool
}

var knownProviders = map[string]ProviderConfig{
	"openai": {
		Name: "openai", Type: TypeOpenAI,
		DefaultModel: "gpt-4o", Models: []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1"},
	},
	"anthropic": {
		Name: "anthropic", Type: TypeAnthropic,
		DefaultModel: "claude-sonnet-4-20250514", Models: []string{"claude-sonnet-4-20250514", "claude-3-5-haiku-latest"},
		MaxTokens: 4096,
	},
	"perplexity": {
		Name: "perplexity", Type: TypeOAIHTTP,
		BaseURL: "https://api.perplexity.ai", ChatCompletionsPath: "/chat/completions",
		DefaultModel: "sonar-pro", Models: []string{"sonar-pro", "sonar"},
		JSONSchema: JSONSchemaConfig{Mode: SchemaModeJSONSchema},
	},
	"deepseek": {
		Name: "deepseek", Type: TypeOAIHTTP,
		BaseURL: "https://api.deepseek.com", ChatCompletionsPath: "/chat/completions",
		DefaultModel: "deepseek-chat", Models: []string{"deepseek-chat", "deepseek-reasoner"},
		JSONSchema: JSONSchemaConfig{Mode: SchemaModeJSONObject},
	},
	"gemini": {
		Name: "gemini", Type: TypeGemini,
		DefaultModel: "gemini-2.0-flash", Models: []string{"gemini-2.0-flash", "gemini-2.5-pro"},
	},
	"mock": {
		Name: "mock", Type: TypeMock,
		DefaultModel: "mock-1", Models: []string{"mock-1"},
	},
}

// LoadFile reads a providers YAML file. ${VAR} references are expanded from
// the environment so keys stay out of the file.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read providers file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse providers file: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromKeys(k Keys) (Config, error) {
	var cfg Config
	add := func(name, key string) {
		if strings.TrimSpace(key) == "" {
			return
		}
		p := knownProviders[name]
		p.APIKey = strings.TrimSpace(key)
		cfg.Providers = append(cfg.Providers, p)
	}
	add("openai", k.OpenAI)
	add("anthropic", k.Anthropic)
	add("perplexity", k.Perplexity)
	add("deepseek", k.DeepSeek)
	add("gemini", k.Gemini)
	if k.Mock || len(cfg.Providers) == 0 {
		cfg.Providers = append(cfg.Providers, knownProviders["mock"])
	}
	cfg.DefaultProvider = strings.TrimSpace(k.DefaultProvider)
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize fills defaults from the built-in provider table and validates.
func (c *Config) Normalize() error {
	if len(c.Providers) == 0 {
		return errors.New("llm: no providers configured")
	}
	seen := map[string]bool{}
	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		if p.Name == "" {
			return fmt.Errorf("llm: provider %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("llm: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true

		if known, ok := knownProviders[p.Name]; ok {
			if p.Type == "" {
				p.Type = known.Type
			}
			if p.BaseURL == "" {
				p.BaseURL = known.BaseURL
			}
			if p.ChatCompletionsPath == "" {
				p.ChatCompletionsPath = known.ChatCompletionsPath
			}
			if p.DefaultModel == "" {
				p.DefaultModel = known.DefaultModel
			}
			if len(p.Models) == 0 {
				p.Models = append([]string(nil), known.Models...)
			}
			if p.MaxTokens == 0 {
				p.MaxTokens = known.MaxTokens
			}
			if p.JSONSchema.Mode == "" {
				p.JSONSchema.Mode = known.JSONSchema.Mode
			}
		}

		switch p.Type {
		case TypeOpenAI, TypeAnthropic, TypeGemini, TypeMock:
		case TypeOAIHTTP:
			if strings.TrimSpace(p.BaseURL) == "" {
				return fmt.Errorf("llm: provider %q: base_url required for oai_http", p.Name)
			}
		default:
			return fmt.Errorf("llm: provider %q: unknown type %q", p.Name, p.Type)
		}
		if p.Type != TypeMock && strings.TrimSpace(p.APIKey) == "" {
			return fmt.Errorf("llm: provider %q: api key required", p.Name)
		}
		if p.DefaultModel == "" {
			if len(p.Models) == 0 {
				return fmt.Errorf("llm: provider %q: no models", p.Name)
			}
			p.DefaultModel = p.Models[0]
		}
		if !contains(p.Models, p.DefaultModel) {
			p.Models = append([]string{p.DefaultModel}, p.Models...)
		}

		mode := strings.ToLower(strings.TrimSpace(p.JSONSchema.Mode))
		switch mode {
		case "":
			mode = SchemaModeAuto
		case SchemaModeAuto, SchemaModeNone, SchemaModeGuided, SchemaModeJSONObject, SchemaModeJSONSchema, SchemaModePrompt:
		default:
			return fmt.Errorf("llm: provider %q: invalid json_schema.mode %q", p.Name, p.JSONSchema.Mode)
		}
		p.JSONSchema.Mode = mode
		if p.JSONSchema.MaxRetries <= 0 {
			p.JSONSchema.MaxRetries = 2
		}
		if p.JSONSchema.MaxPromptBytes <= 0 {
			p.JSONSchema.MaxPromptBytes = 64 << 10
		}
		if p.Timeout.Duration <= 0 {
			p.Timeout.Duration = 120 * time.Second
		}
		if p.MaxRetries < 0 {
			p.MaxRetries = 0
		}
	}

	c.DefaultProvider = strings.ToLower(strings.TrimSpace(c.DefaultProvider))
	if c.DefaultProvider == "" {
		c.DefaultProvider = c.Providers[0].Name
	}
	if !seen[c.DefaultProvider] {
		return fmt.Errorf("llm: default provider %q is not configured", c.DefaultProvider)
	}
	return nil
}

func (c Config) Provider(name string) (ProviderConfig, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
