package prompts

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/yungbote/originality-backend/internal/scoring"
)

var reflector = jsonschema.Reflector{
	ExpandedStruct:            true,
	DoNotReference:            true,
	AllowAdditionalProperties: false,
}

// reflectSchema derives the response schema from a result type. The result is
// cached; callers get a fresh deep copy each time.
func reflectSchema[T any]() func() map[string]any {
	var (
		once sync.Once
		raw  []byte
	)
	return func() map[string]any {
		once.Do(func() {
			var zero T
			s := reflector.Reflect(&zero)
			s.Version = ""
			s.ID = ""
			b, err := json.Marshal(s)
			if err != nil {
				panic(err)
			}
			raw = b
		})
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			panic(err)
		}
		return out
	}
}

var (
	AssessmentSchema     = reflectSchema[scoring.Assessment]()
	ComparisonSchema     = reflectSchema[scoring.Comparison]()
	RewriteSchema        = reflectSchema[scoring.Rewrite]()
	ReconstructionSchema = reflectSchema[scoring.Reconstruction]()
	ChunkSummarySchema   = reflectSchema[scoring.ChunkSummary]()
)

// PlainTextSchema marks prompts answered in prose. Engines are called without
// structured output for these.
func PlainTextSchema() map[string]any {
	return map[string]any{"type": "string"}
}
