package prompts

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Template struct {
	Name       PromptName
	Version    int
	SchemaName string
	Schema     func() map[string]any
	System     func(Input) string
	User       func(Input) string
	Validate   Validator
}

var (
	mu       sync.RWMutex
	registry = map[PromptName]Template{}
)

func Register(t Template) {
	mu.Lock()
	defer mu.Unlock()
	registry[t.Name] = t
}

// Build returns a Prompt ready to pass to an engine.
func Build(name PromptName, in Input) (Prompt, error) {
	mu.RLock()
	t, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Schema == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing schema", string(name))
	}
	if t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing system/user renderers", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	return Prompt{
		Name:       string(t.Name),
		Version:    t.Version,
		SchemaName: strings.TrimSpace(t.SchemaName),
		Schema:     t.Schema(),
		System:     strings.TrimSpace(t.System(in)),
		User:       strings.TrimSpace(t.User(in)),
	}, nil
}

func Schema(name PromptName) (schemaName string, schema map[string]any, ok bool) {
	mu.RLock()
	t, ok := registry[name]
	mu.RUnlock()
	if !ok || t.Schema == nil {
		return "", nil, false
	}
	return t.SchemaName, t.Schema(), true
}

func Names() []PromptName {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]PromptName, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
