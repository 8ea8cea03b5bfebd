package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/prompts"
	"github.com/yungbote/originality-backend/internal/realtime"
	"github.com/yungbote/originality-backend/internal/scoring"
	"github.com/yungbote/originality-backend/internal/textchunk"
)

const repairInstruction = "That reply was not valid JSON for the required schema. Reply again with only the JSON object."

// run holds one analysis execution.
type run struct {
	svc    *analysisService
	a      *types.Analysis
	route  *router.Route
	model  string
	report ProgressFunc
}

func (r *run) split(text string) []textchunk.Chunk {
	return textchunk.Split(text, textchunk.Options{MaxWords: r.a.ChunkWords})
}

// generate renders a prompt, asks for structured output and parses it into T.
// A reply that does not parse gets one repair turn.
func generate[T any, PT interface {
	*T
	scoring.Normalizer
}](ctx context.Context, r *run, name prompts.PromptName, in prompts.Input) (T, error) {
	var zero T
	p, err := prompts.Build(name, in)
	if err != nil {
		return zero, fmt.Errorf("build prompt: %w", err)
	}
	opts := llm.GenerateOptions{Temperature: r.svc.cfg.Temperature, JSONSchema: p.JSONSchema()}
	msgs := p.Messages()
	raw, err := r.route.Engine.GenerateText(ctx, r.model, msgs, opts)
	if err != nil {
		return zero, err
	}
	out, perr := scoring.ParseJSON[T, PT](raw)
	if perr == nil {
		return out, nil
	}
	r.svc.log.Warn("Unparseable model output, retrying", "prompt", p.Name, "provider", r.route.Provider, "error", perr)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleAssistant, Content: raw},
		llm.Message{Role: llm.RoleUser, Content: repairInstruction},
	)
	raw, err = r.route.Engine.GenerateText(ctx, r.model, msgs, opts)
	if err != nil {
		return zero, err
	}
	return scoring.ParseJSON[T, PT](raw)
}

// forEachChunk runs fn over chunks with bounded concurrency and reports
// progress between lo and hi percent.
func (r *run) forEachChunk(ctx context.Context, stage string, chunks []textchunk.Chunk, lo, hi int, fn func(ctx context.Context, c textchunk.Chunk) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.svc.cfg.Concurrency)
	var (
		mu   sync.Mutex
		done int
	)
	total := len(chunks)
	for _, c := range chunks {
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("chunk %d: %w", c.Index+1, err)
			}
			// Reports go out in completion order.
			mu.Lock()
			defer mu.Unlock()
			done++
			r.report(stage, lo+(hi-lo)*done/total, fmt.Sprintf("%s %d/%d", stage, done, total))
			return nil
		})
	}
	return g.Wait()
}

// assess scores text chunk by chunk and aggregates the result.
func (r *run) assess(ctx context.Context, kind scoring.Kind, title, text string, lo, hi int) (scoring.Assessment, []scoring.ChunkAssessment, error) {
	name, ok := prompts.AnalyzePrompt(kind)
	if !ok {
		return scoring.Assessment{}, nil, fmt.Errorf("no prompt for kind %q", kind)
	}
	chunks := r.split(text)
	per := make([]scoring.ChunkAssessment, len(chunks))
	err := r.forEachChunk(ctx, "assess", chunks, lo, hi, func(ctx context.Context, c textchunk.Chunk) error {
		out, err := generate[scoring.Assessment](ctx, r, name, prompts.Input{
			Passage:    c.Text,
			ChunkIndex: c.Index + 1,
			ChunkCount: len(chunks),
			Title:      title,
		})
		if err != nil {
			return err
		}
		per[c.Index] = chunkAssessment(c, out)
		return nil
	})
	if err != nil {
		return scoring.Assessment{}, nil, err
	}
	parts := make([]scoring.Part, len(per))
	for i, p := range per {
		parts[i] = scoring.Part{Words: p.WordCount, Assessment: p.Assessment}
	}
	return scoring.Aggregate(parts), per, nil
}

func (r *run) assessment(ctx context.Context, kind scoring.Kind) (*output, error) {
	r.report("assess", 0, "starting")
	agg, per, err := r.assess(ctx, kind, r.a.Title, r.a.InputText, 0, 100)
	if err != nil {
		return nil, err
	}
	score := agg.Score
	out := &output{result: agg, score: &score, chunkCount: len(per)}
	if len(per) > 1 {
		out.chunks = per
	}
	return out, nil
}

// comparison runs the head-to-head on the first chunk of each passage and
// then assesses both passages in full, one after the other.
func (r *run) comparison(ctx context.Context, req CompareRequest) (*output, error) {
	kind := scoring.Kind(req.Kind)
	chunksA, chunksB := r.split(req.TextA), r.split(req.TextB)
	if len(chunksA) == 0 || len(chunksB) == 0 {
		return nil, fmt.Errorf("comparison needs two non-empty passages")
	}
	res := scoring.CompareResult{
		TruncatedA: len(chunksA) > 1,
		TruncatedB: len(chunksB) > 1,
		WordsA:     textchunk.CountWords(req.TextA),
		WordsB:     textchunk.CountWords(req.TextB),
	}
	r.report("compare", 0, "starting")

	// One passage at a time so the chunk limiter bounds every provider call.
	c, err := generate[scoring.Comparison](ctx, r, prompts.PromptCompare, prompts.Input{
		Kind:     string(kind),
		PassageA: chunksA[0].Text,
		PassageB: chunksB[0].Text,
	})
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	res.Comparison = c
	r.report("compare", 10, "head-to-head done")
	if res.AssessmentA, _, err = r.assess(ctx, kind, "", req.TextA, 10, 55); err != nil {
		return nil, fmt.Errorf("passage A: %w", err)
	}
	if res.AssessmentB, _, err = r.assess(ctx, kind, "", req.TextB, 55, 100); err != nil {
		return nil, fmt.Errorf("passage B: %w", err)
	}
	if res.Comparison.Kind == "" {
		res.Comparison.Kind = kind
	}
	score := res.Comparison.ScoreA
	return &output{result: res, score: &score, chunkCount: max(len(chunksA), len(chunksB))}, nil
}

func (r *run) rewrite(ctx context.Context, req RewriteRequest, onDelta func(string)) (*output, error) {
	res := scoring.RewriteResult{}
	in := prompts.Input{Goal: req.Goal, Instructions: strings.TrimSpace(req.Instructions), Title: r.a.Title}

	progressLo := 0
	if req.Assess && req.Goal != "" {
		orig, _, err := r.assess(ctx, scoring.Kind(req.Goal), r.a.Title, r.a.InputText, 0, 40)
		if err != nil {
			return nil, fmt.Errorf("assess original: %w", err)
		}
		res.Original = &orig
		in.PriorScore = orig.Score
		in.PriorSummary = orig.Summary
		in.Weaknesses = bulletList(orig.Weaknesses)
		progressLo = 40
	}

	chunks := r.split(r.a.InputText)
	texts := make([]string, len(chunks))
	if req.Stream {
		emit := onDelta
		if emit == nil {
			emit = func(delta string) {
				realtime.ToUser(ctx, r.svc.emit, r.a.OwnerUserID, realtime.SSEEventRewriteDelta, map[string]any{
					"analysis_id": r.a.ID,
					"delta":       delta,
				})
			}
		}
		if err := r.streamChunks(ctx, chunks, in, progressLo, emit, texts); err != nil {
			return nil, err
		}
		if onDelta == nil {
			defer realtime.ToUser(ctx, r.svc.emit, r.a.OwnerUserID, realtime.SSEEventRewriteDone, map[string]any{"analysis_id": r.a.ID})
		}
	} else {
		per := make([]scoring.Rewrite, len(chunks))
		err := r.forEachChunk(ctx, "rewrite", chunks, progressLo, 100, func(ctx context.Context, c textchunk.Chunk) error {
			ci := in
			ci.Passage = c.Text
			ci.ChunkIndex = c.Index + 1
			ci.ChunkCount = len(chunks)
			out, err := generate[scoring.Rewrite](ctx, r, prompts.PromptRewrite, ci)
			if err != nil {
				return err
			}
			per[c.Index] = out
			texts[c.Index] = out.RewrittenText
			return nil
		})
		if err != nil {
			return nil, err
		}
		res.ChangeSummary, res.EstimatedScore = summarizeRewrites(chunks, per)
		if len(per) > 1 {
			res.Chunks = per
		}
	}

	for i, c := range chunks {
		if strings.TrimSpace(texts[i]) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("chunk %d: empty rewrite, original kept", c.Index+1))
			texts[i] = c.Text
			continue
		}
		if c.HasMath {
			for _, m := range missingMath(c.Text, texts[i]) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("chunk %d: math altered: %s", c.Index+1, abbreviate(m, 60)))
			}
		}
	}
	res.RewrittenText = textchunk.JoinTexts(texts)
	return &output{result: res, score: res.EstimatedScore, chunkCount: len(chunks)}, nil
}

// streamChunks rewrites chunks in order so deltas arrive in document order.
func (r *run) streamChunks(ctx context.Context, chunks []textchunk.Chunk, in prompts.Input, lo int, emit func(string), texts []string) error {
	for i, c := range chunks {
		ci := in
		ci.Passage = c.Text
		ci.ChunkIndex = c.Index + 1
		ci.ChunkCount = len(chunks)
		p, err := prompts.Build(prompts.PromptRewriteText, ci)
		if err != nil {
			return fmt.Errorf("build prompt: %w", err)
		}
		if i > 0 {
			emit("\n\n")
		}
		full, err := r.route.Engine.StreamText(ctx, r.model, p.Messages(), llm.GenerateOptions{Temperature: r.svc.cfg.Temperature}, emit)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.Index+1, err)
		}
		texts[i] = strings.TrimSpace(full)
		r.report("rewrite", lo+(100-lo)*(i+1)/len(chunks), fmt.Sprintf("rewrite %d/%d", i+1, len(chunks)))
	}
	return nil
}

// reconstruction summarizes long inputs chunk by chunk and reconstructs the
// argument from the summaries.
func (r *run) reconstruction(ctx context.Context) (*output, error) {
	chunks := r.split(r.a.InputText)
	res := scoring.ReconstructResult{}
	passage := r.a.InputText
	if len(chunks) > 1 {
		sums := make([]scoring.ChunkSummary, len(chunks))
		err := r.forEachChunk(ctx, "summarize", chunks, 0, 70, func(ctx context.Context, c textchunk.Chunk) error {
			out, err := generate[scoring.ChunkSummary](ctx, r, prompts.PromptSummarizeChunk, prompts.Input{
				Passage:    c.Text,
				ChunkIndex: c.Index + 1,
				ChunkCount: len(chunks),
				Title:      r.a.Title,
			})
			if err != nil {
				return err
			}
			sums[c.Index] = out
			return nil
		})
		if err != nil {
			return nil, err
		}
		res.Summaries = sums
		var b strings.Builder
		for i, s := range sums {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Part %d: %s", i+1, s.Summary)
			for _, k := range s.KeyPoints {
				b.WriteString("\n- ")
				b.WriteString(k)
			}
		}
		passage = b.String()
	}
	r.report("reconstruct", 75, "reconstructing argument")
	rec, err := generate[scoring.Reconstruction](ctx, r, prompts.PromptReconstructArgument, prompts.Input{
		Passage: passage,
		Title:   r.a.Title,
	})
	if err != nil {
		return nil, err
	}
	r.report("reconstruct", 100, "done")
	res.Reconstruction = rec
	score := rec.CogencyScore
	return &output{result: res, score: &score, chunkCount: len(chunks)}, nil
}

// summarizeRewrites joins chunk change notes and word-weights the estimates.
func summarizeRewrites(chunks []textchunk.Chunk, per []scoring.Rewrite) (string, *float64) {
	var (
		notes        []string
		sum, weights float64
	)
	for i, p := range per {
		if s := strings.TrimSpace(p.ChangeSummary); s != "" {
			if len(per) > 1 {
				s = fmt.Sprintf("Part %d: %s", i+1, s)
			}
			notes = append(notes, s)
		}
		if p.EstimatedScore > 0 {
			w := float64(max(chunks[i].WordCount, 1))
			sum += p.EstimatedScore * w
			weights += w
		}
	}
	if weights == 0 {
		return strings.Join(notes, "\n"), nil
	}
	est := float64(int(sum/weights*10+0.5)) / 10
	return strings.Join(notes, "\n"), &est
}

var displayMath = regexp.MustCompile(`(?s)\$\$.+?\$\$|\\\[.+?\\\]|\\begin\{[a-zA-Z*]+\}.+?\\end\{[a-zA-Z*]+\}`)

// missingMath lists display-math blocks of orig that do not appear verbatim in
// rewritten.
func missingMath(orig, rewritten string) []string {
	var out []string
	for _, m := range displayMath.FindAllString(orig, -1) {
		if !strings.Contains(rewritten, m) {
			out = append(out, m)
		}
	}
	return out
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "- " + strings.Join(items, "\n- ")
}

func abbreviate(s string, n int) string {
	rs := []rune(strings.Join(strings.Fields(s), " "))
	if len(rs) <= n {
		return string(rs)
	}
	return string(rs[:n]) + "..."
}
