// Package cache memoizes non-streaming LLM completions. Analyses of the same
// passage with the same prompt and model are common when users re-run reports.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// HitObserver is notified on cache lookups. May be nil.
type HitObserver interface {
	CacheLookup(provider string, hit bool)
}

type Engine struct {
	inner    llm.Engine
	store    Store
	provider string
	ttl      time.Duration
	log      *logger.Logger
	observer HitObserver
}

func Wrap(inner llm.Engine, store Store, provider string, ttl time.Duration, log *logger.Logger, observer HitObserver) llm.Engine {
	if store == nil || ttl <= 0 {
		return inner
	}
	return &Engine{inner: inner, store: store, provider: provider, ttl: ttl, log: log, observer: observer}
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	key := Key(e.provider, model, messages, opts)
	if v, ok, err := e.store.Get(ctx, key); err != nil {
		if e.log != nil {
			e.log.Warn("llm cache get failed (continuing)", "provider", e.provider, "error", err)
		}
	} else {
		e.observe(ok)
		if ok {
			return v, nil
		}
	}

	out, err := e.inner.GenerateText(ctx, model, messages, opts)
	if err != nil {
		return "", err
	}
	if err := e.store.Set(ctx, key, out, e.ttl); err != nil && e.log != nil {
		e.log.Warn("llm cache set failed (continuing)", "provider", e.provider, "error", err)
	}
	return out, nil
}

// StreamText is never cached; deltas must reach the client as they arrive.
func (e *Engine) StreamText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	return e.inner.StreamText(ctx, model, messages, opts, onDelta)
}

func (e *Engine) observe(hit bool) {
	if e.observer != nil {
		e.observer.CacheLookup(e.provider, hit)
	}
}

type keyMaterial struct {
	Provider    string          `json:"p"`
	Model       string          `json:"m"`
	Messages    []llm.Message   `json:"msgs"`
	Temperature float64         `json:"t"`
	MaxTokens   int             `json:"mt"`
	Schema      *llm.JSONSchema `json:"s,omitempty"`
}

func Key(provider, model string, messages []llm.Message, opts llm.GenerateOptions) string {
	b, _ := json.Marshal(keyMaterial{
		Provider:    provider,
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Schema:      opts.JSONSchema,
	})
	sum := sha256.Sum256(b)
	return "llm:v1:" + hex.EncodeToString(sum[:])
}
