package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/originality-backend/internal/llm"
)

// Normalizer is implemented by every result type.
type Normalizer interface {
	Normalize()
}

// ParseJSON decodes a model response into T after stripping markdown fences
// and surrounding prose, then normalizes it.
func ParseJSON[T any, PT interface {
	*T
	Normalizer
}](raw string) (T, error) {
	var out T
	cleaned := llm.CleanJSON(raw)
	if cleaned == "" {
		return out, fmt.Errorf("%w: no json object in response", llm.ErrInvalidJSON)
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("%w: %v", llm.ErrInvalidJSON, err)
	}
	PT(&out).Normalize()
	return out, nil
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return math.Round(v*10) / 10
}

// tenPointScale reports whether every score fits a 0..10 scale with at least
// one non-zero value. Models asked for 0..100 sometimes answer out of ten.
func tenPointScale(scores ...float64) bool {
	seen := false
	for _, s := range scores {
		if s > 10 {
			return false
		}
		if s > 0 {
			seen = true
		}
	}
	return seen
}

func cleanList(in []string) []string {
	out := in[:0]
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return []string{}
	}
	return out
}

func (a *Assessment) Normalize() {
	a.Summary = strings.TrimSpace(a.Summary)
	a.Strengths = cleanList(a.Strengths)
	a.Weaknesses = cleanList(a.Weaknesses)

	dims := a.Dimensions[:0]
	for _, d := range a.Dimensions {
		d.Name = strings.TrimSpace(d.Name)
		d.Comment = strings.TrimSpace(d.Comment)
		if d.Name == "" {
			continue
		}
		dims = append(dims, d)
	}
	a.Dimensions = dims
	if a.Dimensions == nil {
		a.Dimensions = []Dimension{}
	}

	scores := []float64{a.Score}
	for _, d := range a.Dimensions {
		scores = append(scores, d.Score)
	}
	factor := 1.0
	if tenPointScale(scores...) {
		factor = 10
	}
	a.Score = clampScore(a.Score * factor)
	for i := range a.Dimensions {
		a.Dimensions[i].Score = clampScore(a.Dimensions[i].Score * factor)
	}
}

func (c *Comparison) Normalize() {
	if tenPointScale(c.ScoreA, c.ScoreB) {
		c.ScoreA *= 10
		c.ScoreB *= 10
	}
	c.ScoreA = clampScore(c.ScoreA)
	c.ScoreB = clampScore(c.ScoreB)
	c.Rationale = strings.TrimSpace(c.Rationale)
	c.Differences = cleanList(c.Differences)

	switch strings.ToLower(strings.TrimSpace(c.Winner)) {
	case "a":
		c.Winner = WinnerA
	case "b":
		c.Winner = WinnerB
	case "tie", "draw", "equal":
		c.Winner = WinnerTie
	default:
		c.Winner = winnerFromScores(c.ScoreA, c.ScoreB)
	}
}

func winnerFromScores(a, b float64) string {
	switch {
	case a > b:
		return WinnerA
	case b > a:
		return WinnerB
	}
	return WinnerTie
}

func (r *Rewrite) Normalize() {
	r.RewrittenText = strings.TrimSpace(r.RewrittenText)
	r.ChangeSummary = strings.TrimSpace(r.ChangeSummary)
	if tenPointScale(r.EstimatedScore) {
		r.EstimatedScore *= 10
	}
	r.EstimatedScore = clampScore(r.EstimatedScore)
}

func (r *Reconstruction) Normalize() {
	r.Premises = cleanList(r.Premises)
	r.Conclusion = strings.TrimSpace(r.Conclusion)
	r.Assumptions = cleanList(r.Assumptions)
	r.Objections = cleanList(r.Objections)

	inf := r.Inferences[:0]
	for _, in := range r.Inferences {
		in.To = strings.TrimSpace(in.To)
		in.From = cleanList(in.From)
		if in.To == "" {
			continue
		}
		switch s := strings.ToLower(strings.TrimSpace(in.Strength)); s {
		case "strong", "moderate", "weak":
			in.Strength = s
		default:
			in.Strength = "moderate"
		}
		inf = append(inf, in)
	}
	r.Inferences = inf
	if r.Inferences == nil {
		r.Inferences = []Inference{}
	}
	if tenPointScale(r.CogencyScore) {
		r.CogencyScore *= 10
	}
	r.CogencyScore = clampScore(r.CogencyScore)
}

func (s *ChunkSummary) Normalize() {
	s.Summary = strings.TrimSpace(s.Summary)
	s.KeyPoints = cleanList(s.KeyPoints)
}
