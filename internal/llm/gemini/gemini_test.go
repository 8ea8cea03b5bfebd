package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/originality-backend/internal/llm"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestGenerateTextJSON(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Fatalf("path = %s", req.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := body["systemInstruction"]; !ok {
			t.Fatalf("systemInstruction missing: %v", body)
		}
		out := `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\": 55}"}]}}]}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(out)),
		}, nil
	})}
	e, err := New(context.Background(), llm.ProviderConfig{Name: "gemini", APIKey: "g-key", BaseURL: "http://upstream/"}, client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := e.GenerateText(context.Background(), "gemini-2.0-flash", []llm.Message{
		{Role: llm.RoleSystem, Content: "judge"},
		{Role: llm.RoleUser, Content: "text"},
	}, llm.GenerateOptions{JSONSchema: &llm.JSONSchema{Name: "a", Schema: map[string]any{"type": "object"}}})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != `{"score": 55}` {
		t.Fatalf("out = %q", out)
	}
}
