// Package mock is an offline engine for development and tests. Structured
// requests get deterministic JSON synthesized from the requested schema.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/yungbote/originality-backend/internal/llm"
)

type Engine struct {
	calls atomic.Int64
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.calls.Add(1)
	user := lastUser(messages)
	if opts.JSONSchema != nil {
		seed := sha256.Sum256([]byte(model + "\n" + user))
		v := synthesize(opts.JSONSchema.Schema, "", seed[:], 0)
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if strings.TrimSpace(user) == "" {
		return "mock: ok", nil
	}
	return fmt.Sprintf("mock: %s", user), nil
}

func (e *Engine) StreamText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	full, err := e.GenerateText(ctx, model, messages, opts)
	if err != nil {
		return "", err
	}
	if onDelta == nil {
		return full, nil
	}
	const chunk = 16
	for i := 0; i < len(full); i += chunk {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		onDelta(full[i:min(i+chunk, len(full))])
	}
	return full, nil
}

// Calls reports how many generations have been served.
func (e *Engine) Calls() int64 { return e.calls.Load() }

func lastUser(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, llm.RoleUser) {
			return messages[i].Content
		}
	}
	return ""
}

func synthesize(schema map[string]any, field string, seed []byte, depth int) any {
	if schema == nil || depth > 8 {
		return nil
	}
	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	typ, _ := schema["type"].(string)
	if typ == "" {
		if types, ok := schema["type"].([]any); ok && len(types) > 0 {
			typ, _ = types[0].(string)
		}
	}
	switch typ {
	case "object", "":
		props, _ := schema["properties"].(map[string]any)
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			sub, _ := props[k].(map[string]any)
			out[k] = synthesize(sub, k, seed, depth+1)
		}
		return out
	case "array":
		items, _ := schema["items"].(map[string]any)
		return []any{synthesize(items, field, seed, depth+1)}
	case "integer", "number":
		lo, hi := 0.0, 100.0
		if v, ok := schema["minimum"].(float64); ok {
			lo = v
		}
		if v, ok := schema["maximum"].(float64); ok {
			hi = v
		}
		h := sha256.Sum256(append(append([]byte{}, seed...), field...))
		span := int64(hi - lo)
		if span <= 0 {
			return lo
		}
		// Land in the upper half so mock scores look plausible.
		n := int64(binary.LittleEndian.Uint64(h[:8]) % uint64(span/2+1))
		return int64(lo) + span/2 + n
	case "boolean":
		return false
	case "string":
		if field == "" {
			return "mock"
		}
		return "mock " + strings.ReplaceAll(field, "_", " ")
	}
	return nil
}
