package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSON strips markdown fences and any prose around the first balanced
// JSON object or array in s. It returns s trimmed when nothing looks like JSON.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.Trim(s, "`")
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return s
	}
	if obj, ok := firstBalanced(s); ok {
		return obj
	}
	return s
}

func ValidateJSON(s string) error {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

func firstBalanced(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	for start >= 0 {
		open := s[start]
		closer := byte('}')
		if open == '[' {
			closer = ']'
		}
		depth := 0
		inStr := false
		esc := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inStr {
				switch {
				case esc:
					esc = false
				case c == '\\':
					esc = true
				case c == '"':
					inStr = false
				}
				continue
			}
			switch c {
			case '"':
				inStr = true
			case open:
				depth++
			case closer:
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}
		next := strings.IndexAny(s[start+1:], "{[")
		if next < 0 {
			break
		}
		start += 1 + next
	}
	return "", false
}

// SchemaInstruction is appended as a system message for providers that have
// no native structured-output mode.
func SchemaInstruction(s *JSONSchema, maxBytes int) string {
	if s == nil {
		return "Return ONLY valid JSON. Do not include markdown or commentary."
	}
	var schemaText string
	if s.Schema != nil {
		if b, err := json.Marshal(s.Schema); err == nil && (maxBytes <= 0 || len(b) <= maxBytes) {
			schemaText = string(b)
		}
	}
	var b strings.Builder
	b.WriteString("Return ONLY a valid JSON value that conforms to the provided JSON Schema. Do not include markdown or commentary.\n")
	if name := strings.TrimSpace(s.Name); name != "" {
		b.WriteString("Schema name: ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	if schemaText != "" {
		b.WriteString("Schema:\n")
		b.WriteString(schemaText)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
