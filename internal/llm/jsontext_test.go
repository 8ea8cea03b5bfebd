package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                                 `{"a":1}`,
		"```json\n{\"a\":1}\n```":                   `{"a":1}`,
		"```\n[1,2]\n```":                           `[1,2]`,
		"Here you go: {\"a\":\"}\"} thanks":         `{"a":"}"}`,
		"noise {broken {\"b\":2} trailing":          `{"b":2}`,
		"no json at all":                            "no json at all",
	}
	for in, want := range cases {
		if got := CleanJSON(in); got != want {
			t.Fatalf("CleanJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateJSON(t *testing.T) {
	if err := ValidateJSON(`{"ok":true}`); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if err := ValidateJSON(`{"ok":`); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestSchemaInstruction(t *testing.T) {
	s := &JSONSchema{Name: "assessment", Schema: map[string]any{"type": "object"}}
	got := SchemaInstruction(s, 0)
	if !strings.Contains(got, "Schema name: assessment") || !strings.Contains(got, `{"type":"object"}`) {
		t.Fatalf("unexpected instruction %q", got)
	}
	if got := SchemaInstruction(s, 4); strings.Contains(got, "Schema:") {
		t.Fatalf("oversize schema should be omitted: %q", got)
	}
}

func TestSplitSystem(t *testing.T) {
	sys, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: " hi "},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "  "},
	})
	if sys != "a\n\nb" {
		t.Fatalf("sys = %q", sys)
	}
	if len(rest) != 1 || rest[0].Content != "hi" {
		t.Fatalf("rest = %+v", rest)
	}
}
