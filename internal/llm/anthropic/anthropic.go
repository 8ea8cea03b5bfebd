// Package anthropic is the Claude engine.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/originality-backend/internal/llm"
)

const defaultMaxTokens = 4096

type Engine struct {
	provider       string
	client         anthropic.Client
	maxTokens      int64
	schemaRetries  int
	maxPromptBytes int
}

func New(cfg llm.ProviderConfig, httpClient *http.Client) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic: api key required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout.Duration > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout.Duration))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}
	return &Engine{
		provider:       name,
		client:         anthropic.NewClient(opts...),
		maxTokens:      maxTokens,
		schemaRetries:  max(cfg.JSONSchema.MaxRetries, 0),
		maxPromptBytes: cfg.JSONSchema.MaxPromptBytes,
	}, nil
}

// params builds the request. Claude has no response_format, so a schema is
// enforced through the system prompt and validated afterwards.
func (e *Engine) params(model string, messages []llm.Message, opts llm.GenerateOptions) (anthropic.MessageNewParams, error) {
	system, convo := llm.SplitSystem(messages)
	if len(convo) == 0 {
		return anthropic.MessageNewParams{}, llm.ErrNoMessages
	}
	if opts.JSONSchema != nil {
		system = strings.TrimSpace(system + "\n\n" + llm.SchemaInstruction(opts.JSONSchema, e.maxPromptBytes))
	}

	msgs := make([]anthropic.MessageParam, 0, len(convo))
	for _, m := range convo {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := e.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = int64(opts.MaxTokens)
	}
	p := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(opts.Temperature),
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return p, nil
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	p, err := e.params(model, messages, opts)
	if err != nil {
		return "", err
	}
	attempts := 1
	if opts.JSONSchema != nil {
		attempts += e.schemaRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		msg, err := e.client.Messages.New(ctx, p)
		if err != nil {
			return "", e.wrapErr(err)
		}
		text := messageText(msg.Content)
		if strings.TrimSpace(text) == "" {
			lastErr = llm.ErrEmptyCompletion
			continue
		}
		if opts.JSONSchema == nil {
			return text, nil
		}
		clean := llm.CleanJSON(text)
		if err := llm.ValidateJSON(clean); err != nil {
			lastErr = err
			continue
		}
		return clean, nil
	}
	return "", fmt.Errorf("%s: %w", e.provider, lastErr)
}

func (e *Engine) StreamText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	p, err := e.params(model, messages, opts)
	if err != nil {
		return "", err
	}
	stream := e.client.Messages.NewStreaming(ctx, p)
	defer stream.Close()

	var msg anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return "", fmt.Errorf("%s: accumulate stream event: %w", e.provider, err)
		}
		if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" && onDelta != nil {
				onDelta(d.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return messageText(msg.Content), e.wrapErr(err)
	}
	return messageText(msg.Content), nil
}

func messageText(blocks []anthropic.ContentBlockUnion) string {
	var sb strings.Builder
	for _, c := range blocks {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

func (e *Engine) wrapErr(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &llm.UpstreamError{Provider: e.provider, StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
	}
	return fmt.Errorf("%s: %w", e.provider, err)
}
