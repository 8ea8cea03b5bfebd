// Package openai is the OpenAI engine, built on the official SDK. It also
// provides Whisper transcription for audio uploads.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/originality-backend/internal/llm"
)

type Engine struct {
	provider     string
	client       openai.Client
	maxTokens    int
	whisperModel openai.AudioModel
}

func New(cfg llm.ProviderConfig, httpClient *http.Client) (*Engine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled by the router's backoff policy.
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
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &Engine{
		provider:     name,
		client:       openai.NewClient(opts...),
		maxTokens:    cfg.MaxTokens,
		whisperModel: openai.AudioModelWhisper1,
	}, nil
}

func (e *Engine) params(model string, messages []llm.Message, opts llm.GenerateOptions) (openai.ChatCompletionNewParams, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(content))
		case llm.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(content))
		default:
			msgs = append(msgs, openai.UserMessage(content))
		}
	}
	if len(msgs) == 0 {
		return openai.ChatCompletionNewParams{}, llm.ErrNoMessages
	}

	p := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(opts.Temperature),
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	if maxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	if s := opts.JSONSchema; s != nil {
		p.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   s.Name,
					Schema: s.Schema,
					Strict: openai.Bool(s.Strict),
				},
			},
		}
	}
	return p, nil
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	p, err := e.params(model, messages, opts)
	if err != nil {
		return "", err
	}
	resp, err := e.client.Chat.Completions.New(ctx, p)
	if err != nil {
		return "", e.wrapErr(err)
	}
	for _, c := range resp.Choices {
		if strings.TrimSpace(c.Message.Content) == "" {
			continue
		}
		if opts.JSONSchema != nil {
			return llm.CleanJSON(c.Message.Content), nil
		}
		return c.Message.Content, nil
	}
	return "", fmt.Errorf("%s: %w", e.provider, llm.ErrEmptyCompletion)
}

func (e *Engine) StreamText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	p, err := e.params(model, messages, opts)
	if err != nil {
		return "", err
	}
	stream := e.client.Chat.Completions.NewStreaming(ctx, p)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			full.WriteString(c.Delta.Content)
			if onDelta != nil {
				onDelta(c.Delta.Content)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), e.wrapErr(err)
	}
	return full.String(), nil
}

// Transcribe sends audio to Whisper and returns the transcript text.
func (e *Engine) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := e.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: e.whisperModel,
		File:  openai.File(audio, filepath.Base(filename), audioContentType(filename)),
	})
	if err != nil {
		return "", e.wrapErr(err)
	}
	return resp.Text, nil
}

func (e *Engine) wrapErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &llm.UpstreamError{Provider: e.provider, StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	return fmt.Errorf("%s: %w", e.provider, err)
}

func audioContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return "audio/wav"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/mpeg"
	}
}
