package prompts

import (
	"errors"
	"strings"
)

func init() {
	RegisterAll()
}

var (
	errMissingPassage  = errors.New("passage is required")
	errMissingPassages = errors.New("both passages are required")
)

func requirePassage(in Input) error {
	if strings.TrimSpace(in.Passage) == "" {
		return errMissingPassage
	}
	return nil
}

func requirePassages(in Input) error {
	if strings.TrimSpace(in.PassageA) == "" || strings.TrimSpace(in.PassageB) == "" {
		return errMissingPassages
	}
	return nil
}

const scoringRules = `Scores are numbers from 0 to 100. 50 is competent but unremarkable; 90 and above is reserved for work that would stand out among professional writing in the field.
Judge the text itself, not the topic. Do not reward length, jargon, or confident tone.
Return only JSON matching the schema.`

const chunkContext = `{{if gt .ChunkCount 1}}This is part {{.ChunkIndex}} of {{.ChunkCount}} of a longer document. Assess this part on its own terms.
{{end}}{{if .Title}}Title: {{.Title}}
{{end}}`

func RegisterAll() {
	RegisterSpec(Spec{
		Name:       PromptAnalyzeOriginality,
		Version:    1,
		SchemaName: "originality_assessment",
		Schema:     AssessmentSchema,
		System: `You are a demanding reviewer assessing the ORIGINALITY of a passage.
Originality means ideas, framings or arguments that are not commonplace: new distinctions, unexpected connections, non-obvious claims that are still defensible.
Restating received views in new words is not originality. Contrarianism without support is not originality.
Use dimensions: "novelty of claims", "conceptual distinctions", "independence from sources", "generativity".
` + scoringRules,
		User: chunkContext + `PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptAnalyzeCogency,
		Version:    1,
		SchemaName: "cogency_assessment",
		Schema:     AssessmentSchema,
		System: `You are a logician assessing the COGENCY of a passage.
Cogency means the conclusions are well supported: premises are plausible, inferences are valid or strong, key objections are anticipated, and terms are used consistently.
A passage can be cogent and unoriginal, or original and weak; judge only support.
Use dimensions: "premise plausibility", "inferential strength", "handling of objections", "clarity of terms".
` + scoringRules,
		User: chunkContext + `PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptAnalyzeIntelligence,
		Version:    1,
		SchemaName: "intelligence_assessment",
		Schema:     AssessmentSchema,
		System: `You are assessing the INTELLIGENCE displayed by the author of a passage.
Look for insight, precise distinctions, economy of expression, awareness of what matters and what does not, and the ability to move between abstraction and example.
Credentials, vocabulary and references to authorities are not evidence of intelligence.
Use dimensions: "insight", "precision", "compression", "judgment".
` + scoringRules,
		User: chunkContext + `PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptAnalyzeQuality,
		Version:    1,
		SchemaName: "quality_assessment",
		Schema:     AssessmentSchema,
		System: `You are an editor assessing the overall QUALITY of a passage as a piece of writing.
Consider structure, clarity, accuracy, style appropriate to the genre, and whether it achieves its evident purpose.
Use dimensions: "structure", "clarity", "accuracy", "style".
` + scoringRules,
		User: chunkContext + `PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptCompare,
		Version:    1,
		SchemaName: "comparison",
		Schema:     ComparisonSchema,
		System: `You compare two passages on a single criterion: {{.Kind}}.
Score each passage independently from 0 to 100 on that criterion, then name the winner ("A", "B" or "tie").
List the concrete differences that drove the judgement.
Return only JSON matching the schema. Set "kind" to "{{.Kind}}".`,
		User: `PASSAGE A:
{{.PassageA}}

PASSAGE B:
{{.PassageB}}`,
		Validators: []Validator{requirePassages},
	})

	RegisterSpec(Spec{
		Name:       PromptRewrite,
		Version:    1,
		SchemaName: "rewrite",
		Schema:     RewriteSchema,
		System: `You rewrite passages to improve them{{if .Goal}} with respect to {{.Goal}}{{end}} while preserving the author's meaning and voice.
Keep paragraph breaks. Copy mathematical notation (anything between $...$, $$...$$, \[...\] or \begin{...}...\end{...}) exactly as written.
Do not add headings, commentary or notes inside the rewritten text.
"estimated_score" is your 0 to 100 estimate of the rewritten passage{{if .Goal}} on {{.Goal}}{{end}}.
Return only JSON matching the schema.`,
		User: chunkContext + `{{if .Instructions}}INSTRUCTIONS:
{{.Instructions}}

{{end}}{{if .PriorSummary}}ASSESSMENT OF THE ORIGINAL (score {{.PriorScore}}):
{{.PriorSummary}}
{{if .Weaknesses}}Weaknesses to address:
{{.Weaknesses}}
{{end}}
{{end}}PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptRewriteText,
		Version:    1,
		SchemaName: "rewrite_text",
		Schema:     PlainTextSchema,
		System: `You rewrite passages to improve them{{if .Goal}} with respect to {{.Goal}}{{end}} while preserving the author's meaning and voice.
Keep paragraph breaks. Copy mathematical notation (anything between $...$, $$...$$, \[...\] or \begin{...}...\end{...}) exactly as written.
Reply with the rewritten passage only: no preamble, headings, notes or markdown fences.`,
		User: chunkContext + `{{if .Instructions}}INSTRUCTIONS:
{{.Instructions}}

{{end}}{{if .PriorSummary}}ASSESSMENT OF THE ORIGINAL (score {{.PriorScore}}):
{{.PriorSummary}}
{{if .Weaknesses}}Weaknesses to address:
{{.Weaknesses}}
{{end}}
{{end}}PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptReconstructArgument,
		Version:    1,
		SchemaName: "argument_reconstruction",
		Schema:     ReconstructionSchema,
		System: `You reconstruct the argument of a passage in standard form.
List the explicit premises, the main conclusion, and each inference step as "from" (premises or intermediate claims, quoted as listed) to "to", rated strong, moderate or weak.
List unstated assumptions the argument needs, and the strongest objections.
"cogency_score" rates from 0 to 100 how well the premises support the conclusion.
Return only JSON matching the schema.`,
		User: `{{if .Title}}Title: {{.Title}}
{{end}}PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})

	RegisterSpec(Spec{
		Name:       PromptSummarizeChunk,
		Version:    1,
		SchemaName: "chunk_summary",
		Schema:     ChunkSummarySchema,
		System: `Summarize the passage faithfully in a single paragraph of at most 150 words, then list its key claims.
Keep the author's claims and terminology; do not evaluate them.
Return only JSON matching the schema.`,
		User: chunkContext + `PASSAGE:
{{.Passage}}`,
		Validators: []Validator{requirePassage},
	})
}
