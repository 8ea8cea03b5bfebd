package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/originality-backend/internal/pkg/errors"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/realtime"
	"github.com/yungbote/originality-backend/internal/scoring"
	"github.com/yungbote/originality-backend/internal/textchunk"
)

type AnalysisConfig struct {
	// ChunkWords is the default chunk size when a request does not set one.
	ChunkWords int
	// Concurrency bounds in-flight provider calls per analysis.
	Concurrency int
	// MinChunkWords is the smallest chunk size a request may ask for.
	MinChunkWords int
	// MaxChunks rejects requests that would split into more chunks than this.
	MaxChunks int
	// MaxWords rejects inputs longer than this. <= 0 disables the check.
	MaxWords    int
	Temperature float64
}

const (
	defaultMinChunkWords = 100
	defaultMaxChunks     = 200
)

// ModelResolver is satisfied by *router.Router.
type ModelResolver interface {
	Resolve(provider, model string) (*router.Route, string, error)
}

// AnalysisObserver records finished analyses. The prometheus metrics
// implement it.
type AnalysisObserver interface {
	ObserveAnalysis(analysisType, outcome string, d time.Duration)
}

type AnalysisService interface {
	Analyze(ctx context.Context, ownerUserID uuid.UUID, req AnalyzeRequest) (*types.Analysis, error)
	Compare(ctx context.Context, ownerUserID uuid.UUID, req CompareRequest) (*types.Analysis, error)
	// Rewrite streams text deltas to onDelta when req.Stream is set and
	// onDelta is non-nil.
	Rewrite(ctx context.Context, ownerUserID uuid.UUID, req RewriteRequest, onDelta func(string)) (*types.Analysis, error)
	Reconstruct(ctx context.Context, ownerUserID uuid.UUID, req ReconstructRequest) (*types.Analysis, error)
	// Run executes a stored pending analysis. The job worker calls it.
	Run(ctx context.Context, analysisID uuid.UUID, progress ProgressFunc) (*types.Analysis, error)
	// Abandon fails an unfinished analysis whose job will not run again.
	Abandon(ctx context.Context, analysisID uuid.UUID, reason string) error

	List(ctx context.Context, ownerUserID uuid.UUID, f repos.AnalysisListFilter) ([]*types.Analysis, int64, error)
	Get(ctx context.Context, ownerUserID, id uuid.UUID) (*types.Analysis, error)
	Delete(ctx context.Context, ownerUserID, id uuid.UUID) error
}

type analysisService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.AnalysisRepo
	docs     repos.DocumentRepo
	jobs     JobService
	models   ModelResolver
	emit     realtime.Emitter
	observer AnalysisObserver
	cfg      AnalysisConfig
}

func NewAnalysisService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.AnalysisRepo,
	docs repos.DocumentRepo,
	jobs JobService,
	models ModelResolver,
	emit realtime.Emitter,
	observer AnalysisObserver,
	cfg AnalysisConfig,
) AnalysisService {
	if cfg.ChunkWords <= 0 {
		cfg.ChunkWords = textchunk.DefaultMaxWords
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MinChunkWords <= 0 {
		cfg.MinChunkWords = defaultMinChunkWords
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = defaultMaxChunks
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if emit == nil {
		emit = realtime.NopEmitter{}
	}
	return &analysisService{
		db:       db,
		log:      baseLog.With("service", "AnalysisService"),
		repo:     repo,
		docs:     docs,
		jobs:     jobs,
		models:   models,
		emit:     emit,
		observer: observer,
		cfg:      cfg,
	}
}

// draft is an analysis row plus the request it was created from.
type draft struct {
	row   *types.Analysis
	req   any
	async bool
}

func (s *analysisService) Analyze(ctx context.Context, ownerUserID uuid.UUID, req AnalyzeRequest) (*types.Analysis, error) {
	kind, err := scoring.ParseKind(req.Kind)
	if err != nil {
		return nil, apierr.BadRequest("invalid_kind", "%v", err)
	}
	req.Kind = string(kind)
	src, err := s.resolveSource(ctx, ownerUserID, req.Source)
	if err != nil {
		return nil, err
	}
	d, err := s.newDraft(ownerUserID, analyses.TypeAssessment, string(kind), req.Target, src, req.ChunkWords, req.Async)
	if err != nil {
		return nil, err
	}
	req.Source = Source{DocumentID: src.DocumentID, Title: src.Title}
	d.req = req
	return s.start(ctx, d, nil)
}

func (s *analysisService) Compare(ctx context.Context, ownerUserID uuid.UUID, req CompareRequest) (*types.Analysis, error) {
	kind, err := scoring.ParseKind(req.Kind)
	if err != nil {
		return nil, apierr.BadRequest("invalid_kind", "%v", err)
	}
	req.Kind = string(kind)
	a, err := s.resolveSource(ctx, ownerUserID, Source{Text: req.TextA, DocumentID: req.DocumentA})
	if err != nil {
		return nil, err
	}
	b, err := s.resolveSource(ctx, ownerUserID, Source{Text: req.TextB, DocumentID: req.DocumentB})
	if err != nil {
		return nil, err
	}
	req.TextA, req.TextB = a.Text, b.Text
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("%s vs %s", a.Title, b.Title)
	}
	d, err := s.newDraft(ownerUserID, analyses.TypeComparison, string(kind), req.Target, Source{Title: title}, req.ChunkWords, req.Async)
	if err != nil {
		return nil, err
	}
	wordsA, wordsB := textchunk.CountWords(a.Text), textchunk.CountWords(b.Text)
	d.row.WordCount = wordsA + wordsB
	if err := s.checkWords(d.row.WordCount); err != nil {
		return nil, err
	}
	if err := s.checkChunks(max(wordsA, wordsB), d.row.ChunkWords); err != nil {
		return nil, err
	}
	d.req = req
	return s.start(ctx, d, nil)
}

func (s *analysisService) Rewrite(ctx context.Context, ownerUserID uuid.UUID, req RewriteRequest, onDelta func(string)) (*types.Analysis, error) {
	req.Goal = strings.TrimSpace(req.Goal)
	if k, err := scoring.ParseKind(req.Goal); err == nil {
		req.Goal = string(k)
	} else if req.Assess {
		return nil, apierr.BadRequest("invalid_goal", "assess requires a scoring kind as goal")
	}
	src, err := s.resolveSource(ctx, ownerUserID, req.Source)
	if err != nil {
		return nil, err
	}
	// A caller-supplied stream sink needs the work done in this request.
	async := req.Async && onDelta == nil
	d, err := s.newDraft(ownerUserID, analyses.TypeRewrite, req.Goal, req.Target, src, req.ChunkWords, async)
	if err != nil {
		return nil, err
	}
	req.Source = Source{DocumentID: src.DocumentID, Title: src.Title}
	d.req = req
	return s.start(ctx, d, onDelta)
}

func (s *analysisService) Reconstruct(ctx context.Context, ownerUserID uuid.UUID, req ReconstructRequest) (*types.Analysis, error) {
	src, err := s.resolveSource(ctx, ownerUserID, req.Source)
	if err != nil {
		return nil, err
	}
	d, err := s.newDraft(ownerUserID, analyses.TypeReconstruction, "", req.Target, src, req.ChunkWords, req.Async)
	if err != nil {
		return nil, err
	}
	req.Source = Source{DocumentID: src.DocumentID, Title: src.Title}
	d.req = req
	return s.start(ctx, d, nil)
}

func (s *analysisService) Run(ctx context.Context, analysisID uuid.UUID, progress ProgressFunc) (*types.Analysis, error) {
	a, err := s.repo.GetByID(dbctx.New(ctx), analysisID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apierr.NotFound("analysis_not_found", "analysis")
	}
	if a.Status == analyses.StatusSucceeded {
		return a, nil
	}
	return a, s.execute(ctx, a, progress, nil)
}

func (s *analysisService) Abandon(ctx context.Context, analysisID uuid.UUID, reason string) error {
	a, err := s.repo.GetByID(dbctx.New(ctx), analysisID)
	if err != nil {
		return err
	}
	if a == nil || a.Status == analyses.StatusSucceeded || a.Status == analyses.StatusFailed {
		return nil
	}
	a.Status = analyses.StatusFailed
	a.Error = reason
	if err := s.repo.UpdateFields(dbctx.New(ctx), a.ID, map[string]interface{}{"status": a.Status, "error": a.Error}); err != nil {
		return fmt.Errorf("abandon analysis: %w", err)
	}
	s.finish(ctx, a, "error")
	return nil
}

func (s *analysisService) List(ctx context.Context, ownerUserID uuid.UUID, f repos.AnalysisListFilter) ([]*types.Analysis, int64, error) {
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.ListForOwner(dbctx.New(ctx), ownerUserID, f)
}

func (s *analysisService) Get(ctx context.Context, ownerUserID, id uuid.UUID) (*types.Analysis, error) {
	a, err := s.repo.GetForOwner(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apierr.NotFound("analysis_not_found", "analysis")
	}
	return a, nil
}

func (s *analysisService) Delete(ctx context.Context, ownerUserID, id uuid.UUID) error {
	ok, err := s.repo.SoftDelete(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if !ok {
		return apierr.NotFound("analysis_not_found", "analysis")
	}
	return nil
}

// resolveSource loads the document text when a document id is given and
// normalizes inline text otherwise.
func (s *analysisService) resolveSource(ctx context.Context, ownerUserID uuid.UUID, src Source) (Source, error) {
	if ownerUserID == uuid.Nil {
		return Source{}, pkgerrors.ErrUnauthorized
	}
	out := Source{Title: strings.TrimSpace(src.Title)}
	if src.DocumentID != nil && *src.DocumentID != uuid.Nil {
		doc, err := s.docs.GetForOwner(dbctx.New(ctx), ownerUserID, *src.DocumentID)
		if err != nil {
			return Source{}, err
		}
		if doc == nil {
			return Source{}, apierr.NotFound("document_not_found", "document")
		}
		id := doc.ID
		out.DocumentID = &id
		out.Text = doc.Text
		if out.Title == "" {
			out.Title = doc.Title
		}
	} else {
		out.Text = src.Text
	}
	out.Text = textchunk.Normalize(out.Text)
	if out.Text == "" {
		return Source{}, apierr.BadRequest("empty_text", "text or document_id is required")
	}
	if out.Title == "" {
		out.Title = defaultTitle(out.Text)
	}
	return out, nil
}

func (s *analysisService) newDraft(ownerUserID uuid.UUID, typ, kind string, target Target, src Source, chunkWords int, async bool) (*draft, error) {
	route, model, err := s.models.Resolve(target.Provider, target.Model)
	if err != nil {
		return nil, wrapLLMErr(err)
	}
	if chunkWords <= 0 {
		chunkWords = s.cfg.ChunkWords
	}
	chunkWords = max(chunkWords, s.cfg.MinChunkWords)
	words := textchunk.CountWords(src.Text)
	if err := s.checkWords(words); err != nil {
		return nil, err
	}
	if err := s.checkChunks(words, chunkWords); err != nil {
		return nil, err
	}
	status := analyses.StatusRunning
	if async {
		status = analyses.StatusPending
	}
	return &draft{
		row: &types.Analysis{
			OwnerUserID: ownerUserID,
			DocumentID:  src.DocumentID,
			Type:        typ,
			Kind:        kind,
			Provider:    route.Provider,
			Model:       model,
			Status:      status,
			Title:       src.Title,
			InputText:   src.Text,
			ChunkWords:  chunkWords,
			WordCount:   words,
		},
		async: async,
	}, nil
}

func (s *analysisService) checkWords(words int) error {
	if s.cfg.MaxWords > 0 && words > s.cfg.MaxWords {
		return apierr.BadRequest("text_too_long", "text has %d words; the limit is %d", words, s.cfg.MaxWords)
	}
	return nil
}

// checkChunks bounds the number of provider calls one text can fan out into.
func (s *analysisService) checkChunks(words, chunkWords int) error {
	if n := (words + chunkWords - 1) / chunkWords; n > s.cfg.MaxChunks {
		return apierr.BadRequest("too_many_chunks", "text splits into %d chunks of %d words; the limit is %d", n, chunkWords, s.cfg.MaxChunks)
	}
	return nil
}

// start persists the draft, then either queues it or runs it inline.
func (s *analysisService) start(ctx context.Context, d *draft, onDelta func(string)) (*types.Analysis, error) {
	raw, err := json.Marshal(d.req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	d.row.Request = datatypes.JSON(raw)

	if d.async {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			if _, err := s.repo.Create(dbc, []*types.Analysis{d.row}); err != nil {
				return fmt.Errorf("create analysis: %w", err)
			}
			id := d.row.ID
			job, err := s.jobs.Enqueue(dbc, d.row.OwnerUserID, JobTypeAnalysisRun, "analysis", &id, map[string]any{"analysis_id": id.String()})
			if err != nil {
				return err
			}
			jobID := job.ID
			d.row.JobID = &jobID
			return s.repo.UpdateFields(dbc, id, map[string]interface{}{"job_id": jobID})
		})
		if err != nil {
			return nil, err
		}
		return d.row, nil
	}

	if _, err := s.repo.Create(dbctx.New(ctx), []*types.Analysis{d.row}); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}
	if err := s.execute(ctx, d.row, nil, onDelta); err != nil {
		return nil, err
	}
	return d.row, nil
}

// execute runs the analysis held in a and records the outcome on the row. a is
// updated in place.
func (s *analysisService) execute(ctx context.Context, a *types.Analysis, progress ProgressFunc, onDelta func(string)) error {
	started := time.Now()
	// Outcome writes must land even when the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	if a.Status != analyses.StatusRunning {
		a.Status = analyses.StatusRunning
		if err := s.repo.UpdateFields(dbctx.New(persistCtx), a.ID, map[string]interface{}{"status": a.Status, "error": ""}); err != nil {
			return err
		}
	}
	log := s.log.With("analysis_id", a.ID, "type", a.Type, "provider", a.Provider, "model", a.Model)
	report := func(stage string, pct int, msg string) {
		if progress != nil {
			progress(stage, pct, msg)
		}
		realtime.ToUser(ctx, s.emit, a.OwnerUserID, realtime.SSEEventAnalysisProgress, map[string]any{
			"analysis_id": a.ID,
			"type":        a.Type,
			"stage":       stage,
			"progress":    pct,
			"message":     msg,
		})
	}

	out, err := s.dispatch(ctx, a, report, onDelta)
	a.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		err = wrapLLMErr(err)
		log.Warn("Analysis failed", "error", err, "duration_ms", a.DurationMS)
		a.Status = analyses.StatusFailed
		a.Error = err.Error()
		if uerr := s.repo.UpdateFields(dbctx.New(persistCtx), a.ID, map[string]interface{}{
			"status":      a.Status,
			"error":       a.Error,
			"duration_ms": a.DurationMS,
		}); uerr != nil {
			log.Error("Failed to record analysis failure", "error", uerr)
		}
		s.finish(persistCtx, a, "error")
		return err
	}

	updates := map[string]interface{}{
		"status":      analyses.StatusSucceeded,
		"error":       "",
		"duration_ms": a.DurationMS,
		"chunk_count": out.chunkCount,
	}
	if out.score != nil {
		updates["score"] = *out.score
	}
	result, err := toJSON(out.result)
	if err != nil {
		return err
	}
	updates["result"] = result
	var chunks datatypes.JSON
	if out.chunks != nil {
		if chunks, err = toJSON(out.chunks); err != nil {
			return err
		}
		updates["chunks"] = chunks
	}
	if err := s.repo.UpdateFields(dbctx.New(persistCtx), a.ID, updates); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	a.Status = analyses.StatusSucceeded
	a.Error = ""
	a.Score = out.score
	a.ChunkCount = out.chunkCount
	a.Result = result
	if chunks != nil {
		a.Chunks = chunks
	}
	log.Info("Analysis finished", "duration_ms", a.DurationMS, "chunks", out.chunkCount)
	s.finish(persistCtx, a, "ok")
	return nil
}

func (s *analysisService) finish(ctx context.Context, a *types.Analysis, outcome string) {
	if s.observer != nil {
		s.observer.ObserveAnalysis(a.Type, outcome, time.Duration(a.DurationMS)*time.Millisecond)
	}
	realtime.ToUser(ctx, s.emit, a.OwnerUserID, realtime.SSEEventAnalysisDone, map[string]any{
		"analysis_id": a.ID,
		"type":        a.Type,
		"status":      a.Status,
		"score":       a.Score,
		"error":       a.Error,
	})
}

// output is what each analysis type produces.
type output struct {
	result     any
	chunks     any
	score      *float64
	chunkCount int
}

func (s *analysisService) dispatch(ctx context.Context, a *types.Analysis, report ProgressFunc, onDelta func(string)) (*output, error) {
	route, model, err := s.models.Resolve(a.Provider, a.Model)
	if err != nil {
		return nil, err
	}
	r := &run{svc: s, a: a, route: route, model: model, report: report}
	switch a.Type {
	case analyses.TypeAssessment:
		var req AnalyzeRequest
		if err := json.Unmarshal(a.Request, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		return r.assessment(ctx, scoring.Kind(req.Kind))
	case analyses.TypeComparison:
		var req CompareRequest
		if err := json.Unmarshal(a.Request, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		return r.comparison(ctx, req)
	case analyses.TypeRewrite:
		var req RewriteRequest
		if err := json.Unmarshal(a.Request, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
		return r.rewrite(ctx, req, onDelta)
	case analyses.TypeReconstruction:
		return r.reconstruction(ctx)
	}
	return nil, fmt.Errorf("unknown analysis type %q", a.Type)
}

func toJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return datatypes.JSON(b), nil
}
