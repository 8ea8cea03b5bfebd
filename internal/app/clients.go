package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/llm/cache"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/observability"
	"github.com/yungbote/originality-backend/internal/pkg/retry"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime/bus"
)

type Clients struct {
	Redis  *goredis.Client
	SSEBus bus.Bus
	Models *router.Router
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        addr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("redis ping %s: %w", addr, err)
		}
		out.Redis = rdb
		out.SSEBus = bus.NewRedisBusFromClient(log, rdb, cfg.RedisSSEChannel)
	}

	// LLM providers
	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	opts := router.Options{
		Retry: retry.Config{
			MaxRetries:  cfg.LLMMaxRetries,
			BaseBackoff: 500 * time.Millisecond,
			MaxBackoff:  8 * time.Second,
			MaxJitter:   250 * time.Millisecond,
		},
		Observer: metrics,
		CacheTTL: cfg.LLMCacheTTL,
	}
	if out.Redis != nil {
		opts.CacheStore = cache.NewRedisStoreFromClient(out.Redis)
	}
	models, err := router.New(ctx, llmCfg, log, opts)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init llm router: %w", err)
	}
	out.Models = models
	return out, nil
}

// LLMConfig prefers the providers file and falls back to API keys.
func (cfg Config) LLMConfig() (llm.Config, error) {
	if path := strings.TrimSpace(cfg.LLMProvidersPath); path != "" {
		c, err := llm.LoadFile(path)
		if err != nil {
			return llm.Config{}, err
		}
		if d := strings.TrimSpace(cfg.LLMDefaultProvider); d != "" {
			c.DefaultProvider = d
			if err := c.Normalize(); err != nil {
				return llm.Config{}, err
			}
		}
		return c, nil
	}
	return llm.FromKeys(llm.Keys{
		OpenAI:          cfg.OpenAIKey,
		Anthropic:       cfg.AnthropicKey,
		Perplexity:      cfg.PerplexityKey,
		DeepSeek:        cfg.DeepSeekKey,
		Gemini:          cfg.GeminiKey,
		DefaultProvider: cfg.LLMDefaultProvider,
		Mock:            cfg.LLMMock,
	})
}

func (c Clients) Close() {
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
