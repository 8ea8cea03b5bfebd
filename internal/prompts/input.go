package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// The passage under assessment, or one chunk of it
	Passage    string
	ChunkIndex int
	ChunkCount int
	Title      string

	// Comparison
	Kind     string
	PassageA string
	PassageB string

	// Rewrite
	Goal         string
	Instructions string
	// Assessment of the original, used to steer the rewrite
	PriorScore   float64
	PriorSummary string
	Weaknesses   string
}
