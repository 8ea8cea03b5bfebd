package scoring

import (
	"sort"
	"strings"
)

// Part is one chunk's assessment and the number of words it covered.
type Part struct {
	Words      int
	Assessment Assessment
}

// Aggregate combines chunk assessments into a document assessment. Scores are
// weighted by word count; a part with zero words counts as one. Strengths and
// weaknesses keep first-seen order with case-insensitive duplicates removed.
// Parts are expected to be normalized already; Aggregate never rescales.
func Aggregate(parts []Part) Assessment {
	out := Assessment{Strengths: []string{}, Weaknesses: []string{}, Dimensions: []Dimension{}}
	if len(parts) == 0 {
		return out
	}

	type dimAcc struct {
		name     string
		sum      float64
		weight   float64
		comments []string
	}
	var (
		total     float64
		weighted  float64
		summaries []string
		dims      = map[string]*dimAcc{}
		dimOrder  []string
		seenS     = map[string]bool{}
		seenW     = map[string]bool{}
	)
	for _, p := range parts {
		w := float64(p.Words)
		if w <= 0 {
			w = 1
		}
		a := p.Assessment
		total += w
		weighted += a.Score * w
		if s := strings.TrimSpace(a.Summary); s != "" {
			summaries = append(summaries, s)
		}
		out.Strengths = appendUnique(out.Strengths, seenS, a.Strengths)
		out.Weaknesses = appendUnique(out.Weaknesses, seenW, a.Weaknesses)
		for _, d := range a.Dimensions {
			key := strings.ToLower(strings.TrimSpace(d.Name))
			if key == "" {
				continue
			}
			acc, ok := dims[key]
			if !ok {
				acc = &dimAcc{name: strings.TrimSpace(d.Name)}
				dims[key] = acc
				dimOrder = append(dimOrder, key)
			}
			acc.sum += d.Score * w
			acc.weight += w
			if c := strings.TrimSpace(d.Comment); c != "" {
				acc.comments = append(acc.comments, c)
			}
		}
	}
	out.Score = clampScore(weighted / total)
	out.Summary = strings.Join(summaries, "\n\n")
	for _, key := range dimOrder {
		acc := dims[key]
		out.Dimensions = append(out.Dimensions, Dimension{
			Name:    acc.name,
			Score:   clampScore(acc.sum / acc.weight),
			Comment: strings.Join(acc.comments, " "),
		})
	}
	return out
}

func appendUnique(dst []string, seen map[string]bool, src []string) []string {
	for _, s := range src {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, s)
	}
	return dst
}

// Ranked returns the dimensions sorted by descending score.
func (a Assessment) Ranked() []Dimension {
	out := append([]Dimension(nil), a.Dimensions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
