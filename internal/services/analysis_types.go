package services

import (
	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/scoring"
	"github.com/yungbote/originality-backend/internal/textchunk"
)

// JobTypeAnalysisRun executes a pending analysis in the worker.
const JobTypeAnalysisRun = "analysis_run"

// Source is the text an operation works on: inline text or a stored document.
type Source struct {
	Text       string     `json:"text,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Title      string     `json:"title,omitempty"`
}

// Target picks the provider and model. Empty values use the router defaults.
type Target struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

type AnalyzeRequest struct {
	Source
	Target
	Kind       string `json:"kind"`
	ChunkWords int    `json:"chunk_words,omitempty"`
	Async      bool   `json:"async,omitempty"`
}

type CompareRequest struct {
	Target
	Kind       string     `json:"kind"`
	TextA      string     `json:"text_a,omitempty"`
	TextB      string     `json:"text_b,omitempty"`
	DocumentA  *uuid.UUID `json:"document_a,omitempty"`
	DocumentB  *uuid.UUID `json:"document_b,omitempty"`
	Title      string     `json:"title,omitempty"`
	ChunkWords int        `json:"chunk_words,omitempty"`
	Async      bool       `json:"async,omitempty"`
}

type RewriteRequest struct {
	Source
	Target
	// Goal is a scoring kind (originality, cogency...) or a free-form aim.
	Goal         string `json:"goal,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	// Assess scores the original first when Goal is a scoring kind and feeds
	// the weaknesses into the rewrite.
	Assess     bool `json:"assess,omitempty"`
	ChunkWords int  `json:"chunk_words,omitempty"`
	Stream     bool `json:"stream,omitempty"`
	Async      bool `json:"async,omitempty"`
}

type ReconstructRequest struct {
	Source
	Target
	ChunkWords int  `json:"chunk_words,omitempty"`
	Async      bool `json:"async,omitempty"`
}

// ProgressFunc receives stage updates while an analysis runs.
type ProgressFunc func(stage string, pct int, message string)

func chunkAssessment(c textchunk.Chunk, a scoring.Assessment) scoring.ChunkAssessment {
	return scoring.ChunkAssessment{
		Index:      c.Index,
		WordCount:  c.WordCount,
		StartWord:  c.StartWord,
		EndWord:    c.EndWord,
		HasMath:    c.HasMath,
		Assessment: a,
	}
}
