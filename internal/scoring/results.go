package scoring

// Stored results of each analysis type. They are what the API returns in
// Analysis.Result and what reports render.

// ChunkAssessment is one chunk's share of an assessment.
type ChunkAssessment struct {
	Index      int        `json:"index"`
	WordCount  int        `json:"word_count"`
	StartWord  int        `json:"start_word"`
	EndWord    int        `json:"end_word"`
	HasMath    bool       `json:"has_math,omitempty"`
	Assessment Assessment `json:"assessment"`
}

type CompareResult struct {
	Comparison  Comparison `json:"comparison"`
	AssessmentA Assessment `json:"assessment_a"`
	AssessmentB Assessment `json:"assessment_b"`
	// TruncatedA/B report that the head-to-head only saw the first chunk.
	TruncatedA bool `json:"truncated_a,omitempty"`
	TruncatedB bool `json:"truncated_b,omitempty"`
	WordsA     int  `json:"words_a"`
	WordsB     int  `json:"words_b"`
}

type RewriteResult struct {
	RewrittenText  string      `json:"rewritten_text"`
	ChangeSummary  string      `json:"change_summary,omitempty"`
	EstimatedScore *float64    `json:"estimated_score,omitempty"`
	Original       *Assessment `json:"original,omitempty"`
	Chunks         []Rewrite   `json:"chunks,omitempty"`
	Warnings       []string    `json:"warnings,omitempty"`
}

type ReconstructResult struct {
	Reconstruction Reconstruction `json:"reconstruction"`
	Summaries      []ChunkSummary `json:"summaries,omitempty"`
}
