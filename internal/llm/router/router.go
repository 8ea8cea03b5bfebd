// Package router builds one engine per configured provider and resolves
// (provider, model) requests against them.
package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/llm/anthropic"
	"github.com/yungbote/originality-backend/internal/llm/cache"
	"github.com/yungbote/originality-backend/internal/llm/gemini"
	"github.com/yungbote/originality-backend/internal/llm/mock"
	"github.com/yungbote/originality-backend/internal/llm/oaihttp"
	"github.com/yungbote/originality-backend/internal/llm/openai"
	"github.com/yungbote/originality-backend/internal/pkg/retry"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type Route struct {
	Provider     string
	Type         llm.ProviderType
	DefaultModel string
	Models       []string
	Engine       llm.Engine
}

type ProviderInfo struct {
	Name         string           `json:"name"`
	Type         llm.ProviderType `json:"type"`
	DefaultModel string           `json:"default_model"`
	Models       []string         `json:"models"`
	Default      bool             `json:"default"`
}

// Transcriber matches extractor.Transcriber.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type Options struct {
	// HTTPClient overrides transport for every engine. Tests use it.
	HTTPClient *http.Client
	Retry      retry.Config
	Observer   Observer
	CacheStore cache.Store
	CacheTTL   time.Duration
}

type Router struct {
	routes      map[string]*Route
	order       []string
	def         string
	transcriber Transcriber
}

func New(ctx context.Context, cfg llm.Config, log *logger.Logger, opts Options) (*Router, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	r := &Router{routes: make(map[string]*Route, len(cfg.Providers)), def: cfg.DefaultProvider}
	for _, p := range cfg.Providers {
		raw, err := build(ctx, p, opts.HTTPClient)
		if err != nil {
			return nil, fmt.Errorf("llm provider %q: %w", p.Name, err)
		}
		if t, ok := raw.(Transcriber); ok && r.transcriber == nil {
			r.transcriber = t
		}
		rc := opts.Retry
		if p.MaxRetries > 0 {
			rc.MaxRetries = p.MaxRetries
		}
		var eng llm.Engine = &instrumented{
			inner:    raw,
			provider: p.Name,
			retry:    rc,
			log:      log.With("provider", p.Name),
			observer: opts.Observer,
		}
		var hitObs cache.HitObserver
		if opts.Observer != nil {
			hitObs = opts.Observer
		}
		eng = cache.Wrap(eng, opts.CacheStore, p.Name, opts.CacheTTL, log, hitObs)

		r.routes[p.Name] = &Route{
			Provider:     p.Name,
			Type:         p.Type,
			DefaultModel: p.DefaultModel,
			Models:       append([]string(nil), p.Models...),
			Engine:       eng,
		}
		r.order = append(r.order, p.Name)
		log.Info("llm provider registered", "provider", p.Name, "type", string(p.Type), "default_model", p.DefaultModel)
	}
	return r, nil
}

// NewStatic wires pre-built engines. Used by tests and the CLI's offline mode.
func NewStatic(def string, routes ...*Route) *Router {
	r := &Router{routes: map[string]*Route{}, def: def}
	for _, rt := range routes {
		r.routes[rt.Provider] = rt
		r.order = append(r.order, rt.Provider)
	}
	if r.def == "" && len(r.order) > 0 {
		r.def = r.order[0]
	}
	return r
}

func build(ctx context.Context, p llm.ProviderConfig, hc *http.Client) (llm.Engine, error) {
	switch p.Type {
	case llm.TypeOpenAI:
		return openai.New(p, hc)
	case llm.TypeAnthropic:
		return anthropic.New(p, hc)
	case llm.TypeGemini:
		return gemini.New(ctx, p, hc)
	case llm.TypeOAIHTTP:
		return oaihttp.NewWithHTTPClient(p, hc)
	case llm.TypeMock:
		return mock.New(), nil
	}
	return nil, fmt.Errorf("unknown provider type %q", p.Type)
}

// Resolve picks the route and model for a request. Empty values fall back to
// the default provider and that provider's default model.
func (r *Router) Resolve(provider, model string) (*Route, string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = r.def
	}
	rt, ok := r.routes[provider]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", llm.ErrUnknownProvider, provider)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = rt.DefaultModel
	}
	return rt, model, nil
}

func (r *Router) DefaultProvider() string { return r.def }

func (r *Router) Providers() []ProviderInfo {
	out := make([]ProviderInfo, 0, len(r.order))
	for _, name := range r.order {
		rt := r.routes[name]
		out = append(out, ProviderInfo{
			Name:         rt.Provider,
			Type:         rt.Type,
			DefaultModel: rt.DefaultModel,
			Models:       append([]string(nil), rt.Models...),
			Default:      name == r.def,
		})
	}
	return out
}

// Transcriber returns the first engine able to transcribe audio, if any.
func (r *Router) Transcriber() Transcriber {
	return r.transcriber
}
