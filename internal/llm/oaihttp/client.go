// Package oaihttp talks to OpenAI-compatible chat completion endpoints over
// plain HTTP. Perplexity and DeepSeek are served through it.
package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/pkg/httpx"
)

type Engine struct {
	provider string
	baseURL  string
	apiKey   string

	chatCompletionsPath string

	timeout       time.Duration
	streamTimeout time.Duration
	maxTokens     int

	jsonSchemaMode           string
	jsonSchemaMaxRetries     int
	jsonSchemaMaxPromptBytes int

	httpClient *http.Client
}

func New(cfg llm.ProviderConfig) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oai_http: base_url required")
	}
	chatPath := strings.TrimSpace(cfg.ChatCompletionsPath)
	if chatPath == "" {
		chatPath = "/v1/chat/completions"
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.JSONSchema.Mode))
	if mode == "" {
		mode = llm.SchemaModeAuto
	}
	maxRetries := cfg.JSONSchema.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	maxPromptBytes := cfg.JSONSchema.MaxPromptBytes
	if maxPromptBytes <= 0 {
		maxPromptBytes = 64 << 10
	}
	name := cfg.Name
	if name == "" {
		name = "oai_http"
	}

	return &Engine{
		provider:                 name,
		baseURL:                  baseURL,
		apiKey:                   strings.TrimSpace(cfg.APIKey),
		chatCompletionsPath:      chatPath,
		timeout:                  timeout,
		streamTimeout:            cfg.StreamTimeout.Duration,
		maxTokens:                cfg.MaxTokens,
		jsonSchemaMode:           mode,
		jsonSchemaMaxRetries:     maxRetries,
		jsonSchemaMaxPromptBytes: maxPromptBytes,
		httpClient:               &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg llm.ProviderConfig, httpClient *http.Client) (*Engine, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		e.httpClient = httpClient
	}
	return e, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`

	ResponseFormat map[string]any `json:"response_format,omitempty"`
	// vLLM/SGLang extension.
	GuidedJSON any `json:"guided_json,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
	Error any `json:"error,omitempty"`
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	chatMsgs := toChatMessages(messages)
	if len(chatMsgs) == 0 {
		return "", llm.ErrNoMessages
	}

	wantJSON := opts.JSONSchema != nil && e.jsonSchemaMode != llm.SchemaModeNone
	attempts := 1
	if wantJSON {
		attempts = 1 + e.jsonSchemaMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		reqBody := e.buildChatRequest(model, chatMsgs, opts, false, attempt)

		var resp chatCompletionResponse
		if err := e.doJSON(ctx, reqBody, &resp); err != nil {
			// Transport and HTTP failures are retried by the caller's backoff
			// policy, not by the schema loop.
			return "", err
		}

		text := extractChatText(resp)
		if strings.TrimSpace(text) == "" {
			lastErr = llm.ErrEmptyCompletion
			continue
		}
		if !wantJSON {
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
	chatMsgs := toChatMessages(messages)
	if len(chatMsgs) == 0 {
		return "", llm.ErrNoMessages
	}

	reqBody := e.buildChatRequest(model, chatMsgs, opts, true, 0)
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", err
	}

	if e.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.streamTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+e.chatCompletionsPath, &buf)
	if err != nil {
		return "", err
	}
	e.setHeaders(req, "text/event-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _, _ := httpx.ReadLimited(resp.Body, 1<<20)
		return "", &llm.UpstreamError{Provider: e.provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var full strings.Builder
	err = streamSSE(resp.Body, func(_ string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			return nil
		}
		var chunk chatCompletionStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil
		}
		if chunk.Error != nil {
			b, _ := json.Marshal(chunk.Error)
			return fmt.Errorf("%s: upstream stream error: %s", e.provider, string(b))
		}
		for _, c := range chunk.Choices {
			delta := c.Delta.Content
			if delta == "" {
				delta = c.Text
			}
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return full.String(), nil
}

func (e *Engine) buildChatRequest(model string, messages []chatMessage, opts llm.GenerateOptions, stream bool, attempt int) chatCompletionRequest {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	req := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
	if opts.JSONSchema == nil || e.jsonSchemaMode == llm.SchemaModeNone {
		return req
	}

	mode := e.jsonSchemaMode
	usePrompt := mode == llm.SchemaModePrompt || mode == llm.SchemaModeJSONObject || attempt > 0
	switch {
	case mode == llm.SchemaModeGuided || (mode == llm.SchemaModeAuto && attempt == 0):
		if opts.JSONSchema.Schema != nil {
			req.ResponseFormat = map[string]any{"type": "json_object"}
			req.GuidedJSON = opts.JSONSchema.Schema
		}
	case mode == llm.SchemaModeJSONObject:
		req.ResponseFormat = map[string]any{"type": "json_object"}
	case mode == llm.SchemaModeJSONSchema:
		req.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   opts.JSONSchema.Name,
				"schema": opts.JSONSchema.Schema,
				"strict": opts.JSONSchema.Strict,
			},
		}
	}
	if usePrompt {
		// Copy so retries never append to the caller's slice.
		msgs := make([]chatMessage, 0, len(messages)+1)
		msgs = append(msgs, messages...)
		req.Messages = append(msgs, chatMessage{
			Role:    llm.RoleSystem,
			Content: llm.SchemaInstruction(opts.JSONSchema, e.jsonSchemaMaxPromptBytes),
		})
	}
	return req
}

func toChatMessages(messages []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.TrimSpace(m.Role)
		content := strings.TrimSpace(m.Content)
		if role == "" || content == "" {
			continue
		}
		out = append(out, chatMessage{Role: role, Content: content})
	}
	return out
}

func extractChatText(resp chatCompletionResponse) string {
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content
		}
		if strings.TrimSpace(c.Text) != "" {
			return c.Text
		}
	}
	return ""
}

func (e *Engine) setHeaders(req *http.Request, accept string) {
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

func (e *Engine) doJSON(ctx context.Context, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+e.chatCompletionsPath, &buf)
	if err != nil {
		return err
	}
	e.setHeaders(req, "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _, _ := httpx.ReadLimited(resp.Body, 1<<20)
		return &llm.UpstreamError{Provider: e.provider, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
