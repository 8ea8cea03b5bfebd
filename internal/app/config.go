package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR, default=:8080"`
	Port     string `env:"PORT"`
	LogMode  string `env:"LOG_MODE, default=development"`
	LogLevel string `env:"LOG_LEVEL, default=debug"`

	DBDriver string `env:"DB_DRIVER, default=sqlite"`
	DBDSN    string `env:"DB_DSN"`

	JWTSecretKey    string        `env:"JWT_SECRET_KEY, default=defaultsecret"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL, default=1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`

	OpenAIKey          string `env:"OPENAI_API_KEY"`
	AnthropicKey       string `env:"ANTHROPIC_API_KEY"`
	PerplexityKey      string `env:"PERPLEXITY_API_KEY"`
	DeepSeekKey        string `env:"DEEPSEEK_API_KEY"`
	GeminiKey          string `env:"GEMINI_API_KEY"`
	LLMDefaultProvider string `env:"LLM_DEFAULT_PROVIDER"`
	LLMProvidersPath   string `env:"LLM_PROVIDERS_PATH"`
	LLMMock            bool   `env:"LLM_MOCK, default=false"`
	LLMMaxRetries      int    `env:"LLM_MAX_RETRIES, default=2"`

	LLMCacheTTL         time.Duration `env:"LLM_CACHE_TTL, default=24h"`
	AnalysisTemperature float64       `env:"ANALYSIS_TEMPERATURE, default=0.2"`

	ChunkWords          int   `env:"CHUNK_WORDS, default=1000"`
	MinChunkWords       int   `env:"MIN_CHUNK_WORDS, default=100"`
	MaxChunks           int   `env:"MAX_CHUNKS, default=200"`
	AnalysisConcurrency int   `env:"ANALYSIS_CONCURRENCY, default=4"`
	MaxWords            int   `env:"MAX_WORDS, default=0"`
	MaxUploadBytes      int64 `env:"MAX_UPLOAD_BYTES, default=26214400"`
	MaxBodyBytes        int64 `env:"MAX_BODY_BYTES, default=2097152"`

	WorkerConcurrency int           `env:"WORKER_CONCURRENCY, default=2"`
	WorkerPoll        time.Duration `env:"WORKER_POLL_INTERVAL, default=1s"`
	WorkerRetryDelay  time.Duration `env:"WORKER_RETRY_DELAY, default=30s"`
	WorkerStale       time.Duration `env:"WORKER_STALE_RUNNING, default=10m"`

	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB, default=0"`
	RedisSSEChannel string `env:"REDIS_SSE_CHANNEL, default=originality:sse"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	OtelEnabled     bool    `env:"OTEL_ENABLED, default=false"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME, default=originality-backend"`
	OtelEnvironment string  `env:"OTEL_ENVIRONMENT, default=development"`
	OtelVersion     string  `env:"OTEL_SERVICE_VERSION"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE, default=false"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO, default=1"`
}

func LoadConfig(ctx context.Context) (Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	// PORT is honoured for hosts that only set it.
	if p := strings.TrimSpace(cfg.Port); p != "" {
		cfg.HTTPAddr = ":" + strings.TrimPrefix(p, ":")
	}
	return cfg, nil
}

// Log prints the effective config with secrets left out.
func (c Config) Log(log *logger.Logger) {
	log.Info("config loaded",
		"http_addr", c.HTTPAddr,
		"db_driver", c.DBDriver,
		"llm_providers_path", c.LLMProvidersPath,
		"llm_default_provider", c.LLMDefaultProvider,
		"chunk_words", c.ChunkWords,
		"max_chunks", c.MaxChunks,
		"worker_concurrency", c.WorkerConcurrency,
		"redis", c.RedisAddr != "",
		"otel", c.OtelEnabled,
	)
	if c.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY is the built-in default; set it outside development")
	}
}
