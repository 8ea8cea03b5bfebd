// Package gemini is the Google Gemini engine.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/originality-backend/internal/llm"
)

type Engine struct {
	provider       string
	client         *genai.Client
	maxTokens      int
	maxPromptBytes int
}

func New(ctx context.Context, cfg llm.ProviderConfig, httpClient *http.Client) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	name := cfg.Name
	if name == "" {
		name = "gemini"
	}
	return &Engine{
		provider:       name,
		client:         client,
		maxTokens:      cfg.MaxTokens,
		maxPromptBytes: cfg.JSONSchema.MaxPromptBytes,
	}, nil
}

func (e *Engine) request(messages []llm.Message, opts llm.GenerateOptions) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, convo := llm.SplitSystem(messages)
	if len(convo) == 0 {
		return nil, nil, llm.ErrNoMessages
	}
	contents := make([]*genai.Content, 0, len(convo))
	for _, m := range convo {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	if opts.JSONSchema != nil {
		config.ResponseMIMEType = "application/json"
		system = strings.TrimSpace(system + "\n\n" + llm.SchemaInstruction(opts.JSONSchema, e.maxPromptBytes))
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	return contents, config, nil
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	contents, config, err := e.request(messages, opts)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", e.wrapErr(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", e.provider, llm.ErrEmptyCompletion)
	}
	if opts.JSONSchema != nil {
		clean := llm.CleanJSON(text)
		if err := llm.ValidateJSON(clean); err != nil {
			return "", fmt.Errorf("%s: %w", e.provider, err)
		}
		return clean, nil
	}
	return text, nil
}

func (e *Engine) StreamText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	contents, config, err := e.request(messages, opts)
	if err != nil {
		return "", err
	}
	var full strings.Builder
	for resp, err := range e.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			return full.String(), e.wrapErr(err)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return full.String(), nil
}

func (e *Engine) wrapErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.UpstreamError{Provider: e.provider, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", e.provider, err)
}
