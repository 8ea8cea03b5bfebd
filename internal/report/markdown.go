package report

import (
	"fmt"
	"strings"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/scoring"
)

func Markdown(a *types.Analysis) ([]byte, error) {
	v, err := Decode(a)
	if err != nil {
		return nil, err
	}
	return []byte(v.Markdown()), nil
}

func (v *View) Markdown() string {
	a := v.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeInline(v.Heading()))

	b.WriteString("| | |\n|---|---|\n")
	row(&b, "Provider", a.Provider+" / "+a.Model)
	row(&b, "Status", a.Status)
	if a.Score != nil {
		row(&b, "Score", fmtScore(*a.Score))
	}
	if a.WordCount > 0 {
		row(&b, "Words", fmt.Sprint(a.WordCount))
	}
	if a.ChunkCount > 1 {
		row(&b, "Chunks", fmt.Sprintf("%d (up to %d words each)", a.ChunkCount, a.ChunkWords))
	}
	row(&b, "Created", a.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("\n")

	if a.Status != analyses.StatusSucceeded {
		if a.Error != "" {
			fmt.Fprintf(&b, "**Error:** %s\n", escapeInline(a.Error))
		} else {
			b.WriteString("_This analysis has not finished._\n")
		}
		return b.String()
	}

	switch {
	case v.Assessment != nil:
		writeAssessment(&b, *v.Assessment, "##")
		if len(v.Chunks) > 1 {
			b.WriteString("## By chunk\n\n| Chunk | Words | Score | Summary |\n|---|---|---|---|\n")
			for _, c := range v.Chunks {
				fmt.Fprintf(&b, "| %d | %d | %s | %s |\n", c.Index+1, c.WordCount, fmtScore(c.Assessment.Score), cell(c.Assessment.Summary))
			}
			b.WriteString("\n")
		}
	case v.Comparison != nil:
		writeComparison(&b, *v.Comparison)
	case v.Rewrite != nil:
		writeRewrite(&b, *v.Rewrite)
	case v.Reconstruct != nil:
		writeReconstruction(&b, *v.Reconstruct)
	}
	return b.String()
}

func writeAssessment(b *strings.Builder, as scoring.Assessment, h string) {
	fmt.Fprintf(b, "%s Score: %s / 100\n\n", h, fmtScore(as.Score))
	if as.Summary != "" {
		b.WriteString(as.Summary)
		b.WriteString("\n\n")
	}
	if len(as.Dimensions) > 0 {
		b.WriteString("| Dimension | Score | Comment |\n|---|---|---|\n")
		for _, d := range as.Dimensions {
			fmt.Fprintf(b, "| %s | %s | %s |\n", cell(d.Name), fmtScore(d.Score), cell(d.Comment))
		}
		b.WriteString("\n")
	}
	list(b, h+" Strengths", as.Strengths)
	list(b, h+" Weaknesses", as.Weaknesses)
}

func writeComparison(b *strings.Builder, c scoring.CompareResult) {
	cmp := c.Comparison
	winner := "Tie"
	switch cmp.Winner {
	case scoring.WinnerA:
		winner = "Passage A"
	case scoring.WinnerB:
		winner = "Passage B"
	}
	fmt.Fprintf(b, "## Winner: %s\n\n", winner)
	b.WriteString("| | Passage A | Passage B |\n|---|---|---|\n")
	fmt.Fprintf(b, "| Head-to-head | %s | %s |\n", fmtScore(cmp.ScoreA), fmtScore(cmp.ScoreB))
	fmt.Fprintf(b, "| Full assessment | %s | %s |\n", fmtScore(c.AssessmentA.Score), fmtScore(c.AssessmentB.Score))
	fmt.Fprintf(b, "| Words | %d | %d |\n\n", c.WordsA, c.WordsB)
	if c.TruncatedA || c.TruncatedB {
		b.WriteString("_The head-to-head saw only the first chunk of the longer passage(s); the full assessments cover the whole text._\n\n")
	}
	if cmp.Rationale != "" {
		b.WriteString(cmp.Rationale)
		b.WriteString("\n\n")
	}
	list(b, "## Differences", cmp.Differences)
	b.WriteString("## Passage A\n\n")
	writeAssessment(b, c.AssessmentA, "###")
	b.WriteString("## Passage B\n\n")
	writeAssessment(b, c.AssessmentB, "###")
}

func writeRewrite(b *strings.Builder, r scoring.RewriteResult) {
	if r.EstimatedScore != nil {
		fmt.Fprintf(b, "## Estimated score: %s / 100\n\n", fmtScore(*r.EstimatedScore))
	}
	if r.Original != nil {
		fmt.Fprintf(b, "Original score: %s / 100\n\n", fmtScore(r.Original.Score))
	}
	if r.ChangeSummary != "" {
		b.WriteString("## Changes\n\n")
		b.WriteString(r.ChangeSummary)
		b.WriteString("\n\n")
	}
	list(b, "## Warnings", r.Warnings)
	b.WriteString("## Rewritten text\n\n")
	b.WriteString(r.RewrittenText)
	b.WriteString("\n")
}

func writeReconstruction(b *strings.Builder, r scoring.ReconstructResult) {
	rec := r.Reconstruction
	fmt.Fprintf(b, "## Cogency: %s / 100\n\n", fmtScore(rec.CogencyScore))
	if len(rec.Premises) > 0 {
		b.WriteString("## Premises\n\n")
		for i, p := range rec.Premises {
			fmt.Fprintf(b, "%d. %s\n", i+1, p)
		}
		b.WriteString("\n")
	}
	if rec.Conclusion != "" {
		fmt.Fprintf(b, "## Conclusion\n\n%s\n\n", rec.Conclusion)
	}
	if len(rec.Inferences) > 0 {
		b.WriteString("## Inferences\n\n| From | To | Strength |\n|---|---|---|\n")
		for _, inf := range rec.Inferences {
			fmt.Fprintf(b, "| %s | %s | %s |\n", cell(strings.Join(inf.From, "; ")), cell(inf.To), inf.Strength)
		}
		b.WriteString("\n")
	}
	list(b, "## Unstated assumptions", rec.Assumptions)
	list(b, "## Objections", rec.Objections)
	if len(r.Summaries) > 0 {
		b.WriteString("## Part summaries\n\n")
		for i, s := range r.Summaries {
			fmt.Fprintf(b, "**Part %d.** %s\n\n", i+1, s.Summary)
		}
	}
}

func row(b *strings.Builder, k, v string) {
	fmt.Fprintf(b, "| %s | %s |\n", k, cell(v))
}

func list(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(escapeInline(it))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// cell makes s safe inside a GFM table cell.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func escapeInline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
