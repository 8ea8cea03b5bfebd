package prompts

import "github.com/yungbote/originality-backend/internal/scoring"

type PromptName string

const (
	// Assessments
	PromptAnalyzeOriginality  PromptName = "analyze_originality"
	PromptAnalyzeCogency      PromptName = "analyze_cogency"
	PromptAnalyzeIntelligence PromptName = "analyze_intelligence"
	PromptAnalyzeQuality      PromptName = "analyze_quality"

	// Head-to-head
	PromptCompare PromptName = "compare"

	// Generation
	PromptRewrite             PromptName = "rewrite"
	PromptRewriteText         PromptName = "rewrite_text"
	PromptReconstructArgument PromptName = "reconstruct_argument"
	PromptSummarizeChunk      PromptName = "summarize_chunk"
)

// AnalyzePrompt maps an assessment kind to its prompt.
func AnalyzePrompt(kind scoring.Kind) (PromptName, bool) {
	switch kind {
	case scoring.KindOriginality:
		return PromptAnalyzeOriginality, true
	case scoring.KindCogency:
		return PromptAnalyzeCogency, true
	case scoring.KindIntelligence:
		return PromptAnalyzeIntelligence, true
	case scoring.KindQuality:
		return PromptAnalyzeQuality, true
	}
	return "", false
}
