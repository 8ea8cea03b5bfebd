package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func offlineEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "PERPLEXITY_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY", "LLM_PROVIDERS_PATH", "LLM_DEFAULT_PROVIDER"} {
		t.Setenv(k, "")
	}
}

func TestChunkPrintsTable(t *testing.T) {
	path := writeFile(t, "essay.txt", "One two three four five.\n\nSix seven eight nine ten.\n\nEleven twelve.")
	out, err := runCLI(t, "chunk", path, "--words", "5")
	if err != nil {
		t.Fatalf("chunk: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 chunks, 12 words") {
		t.Fatalf("output = %s", out)
	}
}

func TestChunkJSON(t *testing.T) {
	path := writeFile(t, "essay.md", "Alpha beta.\n\nGamma delta.")
	out, err := runCLI(t, "chunk", path, "--words", "2", "--json")
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	var chunks []map[string]any
	if err := json.Unmarshal([]byte(out), &chunks); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d", len(chunks))
	}
}

func TestChunkMissingFile(t *testing.T) {
	if _, err := runCLI(t, "chunk", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAnalyzeWithMock(t *testing.T) {
	offlineEnv(t)
	path := writeFile(t, "memo.txt", "A short memo arguing that the obvious answer is wrong for a subtle reason.")
	out, err := runCLI(t, "analyze", path, "--kind", "cogency", "--mock")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	if !strings.Contains(out, "cogency via mock/mock-1") || !strings.Contains(out, "/100") {
		t.Fatalf("output = %s", out)
	}

	if _, err := runCLI(t, "analyze", path, "--kind", "vibes", "--mock"); err == nil {
		t.Fatalf("expected invalid kind error")
	}
}

func TestProvidersLists(t *testing.T) {
	offlineEnv(t)
	out, err := runCLI(t, "providers", "--mock", "--json")
	if err != nil {
		t.Fatalf("providers: %v", err)
	}
	if !strings.Contains(out, `"name": "mock"`) || !strings.Contains(out, `"default": true`) {
		t.Fatalf("output = %s", out)
	}
}
