// Package llm defines the provider-neutral interface the analysis services
// talk to. Concrete engines live in the subpackages.
package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	JSONSchema  *JSONSchema
}

type Engine interface {
	GenerateText(ctx context.Context, model string, messages []Message, opts GenerateOptions) (string, error)
	// StreamText calls onDelta for each text fragment and returns the full text.
	StreamText(ctx context.Context, model string, messages []Message, opts GenerateOptions, onDelta func(delta string)) (string, error)
}

// SplitSystem separates system messages (joined) from the conversation, for
// APIs that take the system prompt out of band.
func SplitSystem(messages []Message) (string, []Message) {
	var (
		sys  []string
		rest = make([]Message, 0, len(messages))
	)
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if m.Role == RoleSystem {
			sys = append(sys, content)
			continue
		}
		rest = append(rest, Message{Role: m.Role, Content: content})
	}
	return strings.Join(sys, "\n\n"), rest
}
