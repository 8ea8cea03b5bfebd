package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/originality-backend/internal/scoring"
)

func TestAllKindsHavePrompts(t *testing.T) {
	for _, k := range scoring.Kinds {
		name, ok := AnalyzePrompt(k)
		if !ok {
			t.Fatalf("no prompt for %s", k)
		}
		if _, _, ok := Schema(name); !ok {
			t.Fatalf("prompt %s not registered", name)
		}
	}
}

func TestBuildRendersChunkContext(t *testing.T) {
	p, err := Build(PromptAnalyzeCogency, Input{Passage: "All men are mortal.", ChunkIndex: 2, ChunkCount: 3})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p.User, "part 2 of 3") || !strings.HasSuffix(p.User, "All men are mortal.") {
		t.Fatalf("user = %q", p.User)
	}
	single, _ := Build(PromptAnalyzeCogency, Input{Passage: "x", ChunkIndex: 1, ChunkCount: 1})
	if strings.Contains(single.User, "part 1") {
		t.Fatalf("single chunk should not mention parts: %q", single.User)
	}
	if p.SchemaName != "cogency_assessment" || p.JSONSchema() == nil {
		t.Fatalf("schema missing")
	}
	if msgs := p.Messages(); len(msgs) != 2 || msgs[0].Role != "system" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestBuildValidates(t *testing.T) {
	if _, err := Build(PromptAnalyzeOriginality, Input{Passage: "  "}); !errors.Is(err, errMissingPassage) {
		t.Fatalf("expected errMissingPassage, got %v", err)
	}
	if _, err := Build(PromptCompare, Input{PassageA: "a"}); !errors.Is(err, errMissingPassages) {
		t.Fatalf("expected errMissingPassages, got %v", err)
	}
	if _, err := Build("nope", Input{}); err == nil {
		t.Fatalf("expected unknown prompt error")
	}
}

func TestRewriteTemplateOptionalSections(t *testing.T) {
	p, err := Build(PromptRewrite, Input{Passage: "text", Goal: "originality", PriorSummary: "derivative", PriorScore: 41, Weaknesses: "- restates Kant"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p.System, "with respect to originality") {
		t.Fatalf("system = %q", p.System)
	}
	if !strings.Contains(p.User, "score 41") || !strings.Contains(p.User, "restates Kant") {
		t.Fatalf("user = %q", p.User)
	}
	if strings.Contains(p.User, "INSTRUCTIONS") {
		t.Fatalf("empty instructions rendered: %q", p.User)
	}
}

func TestAssessmentSchemaShape(t *testing.T) {
	s := AssessmentSchema()
	if s["type"] != "object" {
		t.Fatalf("type = %v", s["type"])
	}
	props, _ := s["properties"].(map[string]any)
	score, _ := props["score"].(map[string]any)
	if score["maximum"] != float64(100) {
		t.Fatalf("score schema = %v", score)
	}
	if _, ok := s["$schema"]; ok {
		t.Fatalf("$schema should be stripped")
	}
	// Callers may mutate their copy.
	s["type"] = "mutated"
	if AssessmentSchema()["type"] != "object" {
		t.Fatalf("schema copy shared")
	}
}

func TestFingerprintStable(t *testing.T) {
	a, _ := Build(PromptSummarizeChunk, Input{Passage: "p"})
	b, _ := Build(PromptSummarizeChunk, Input{Passage: "p"})
	c, _ := Build(PromptSummarizeChunk, Input{Passage: "q"})
	if a.Fingerprint() != b.Fingerprint() || a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("fingerprint not content-addressed")
	}
}
