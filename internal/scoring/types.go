// Package scoring holds the result shapes the LLM prompts return, plus the
// parsing and normalization applied to every response before it is stored.
package scoring

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindOriginality  Kind = "originality"
	KindCogency      Kind = "cogency"
	KindIntelligence Kind = "intelligence"
	KindQuality      Kind = "quality"
)

var Kinds = []Kind{KindOriginality, KindCogency, KindIntelligence, KindQuality}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}

type Dimension struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score" jsonschema:"minimum=0,maximum=100"`
	Comment string  `json:"comment"`
}

type Assessment struct {
	Score      float64     `json:"score" jsonschema:"minimum=0,maximum=100"`
	Summary    string      `json:"summary"`
	Strengths  []string    `json:"strengths"`
	Weaknesses []string    `json:"weaknesses"`
	Dimensions []Dimension `json:"dimensions"`
}

const (
	WinnerA   = "A"
	WinnerB   = "B"
	WinnerTie = "tie"
)

type Comparison struct {
	Kind        Kind     `json:"kind" jsonschema:"enum=originality,enum=cogency,enum=intelligence,enum=quality"`
	ScoreA      float64  `json:"score_a" jsonschema:"minimum=0,maximum=100"`
	ScoreB      float64  `json:"score_b" jsonschema:"minimum=0,maximum=100"`
	Winner      string   `json:"winner" jsonschema:"enum=A,enum=B,enum=tie"`
	Rationale   string   `json:"rationale"`
	Differences []string `json:"differences"`
}

type Rewrite struct {
	RewrittenText  string  `json:"rewritten_text"`
	ChangeSummary  string  `json:"change_summary"`
	EstimatedScore float64 `json:"estimated_score" jsonschema:"minimum=0,maximum=100"`
}

type Inference struct {
	From     []string `json:"from"`
	To       string   `json:"to"`
	Strength string   `json:"strength" jsonschema:"enum=strong,enum=moderate,enum=weak"`
}

type Reconstruction struct {
	Premises     []string    `json:"premises"`
	Conclusion   string      `json:"conclusion"`
	Inferences   []Inference `json:"inferences"`
	Assumptions  []string    `json:"assumptions"`
	Objections   []string    `json:"objections"`
	CogencyScore float64     `json:"cogency_score" jsonschema:"minimum=0,maximum=100"`
}

// ChunkSummary condenses one chunk so long documents can be compared or
// reconstructed from their summaries.
type ChunkSummary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}
