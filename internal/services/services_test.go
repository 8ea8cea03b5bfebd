package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/llm/mock"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/realtime"
)

// recordingEmitter keeps every SSE message for assertions.
type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) count(event realtime.SSEEvent) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

// failingEngine always returns a non-retryable upstream error.
type failingEngine struct{}

func (failingEngine) GenerateText(context.Context, string, []llm.Message, llm.GenerateOptions) (string, error) {
	return "", &llm.UpstreamError{Provider: "broken", StatusCode: http.StatusBadRequest, Body: "bad request"}
}

func (f failingEngine) StreamText(ctx context.Context, model string, msgs []llm.Message, opts llm.GenerateOptions, _ func(string)) (string, error) {
	return f.GenerateText(ctx, model, msgs, opts)
}

type fixture struct {
	db       *gorm.DB
	repos    repos.Repos
	emit     *recordingEmitter
	engine   *mock.Engine
	docs     DocumentService
	analyses AnalysisService
	jobs     JobService
	owner    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	emit := &recordingEmitter{}
	engine := mock.New()
	models := router.NewStatic("mock",
		&router.Route{Provider: "mock", Type: llm.TypeMock, DefaultModel: "mock-1", Models: []string{"mock-1"}, Engine: engine},
		&router.Route{Provider: "broken", Type: llm.TypeMock, DefaultModel: "broken-1", Engine: failingEngine{}},
	)
	jobs := NewJobService(db, log, rp.JobRun, NewJobNotifier(emit))
	f := &fixture{
		db:     db,
		repos:  rp,
		emit:   emit,
		engine: engine,
		docs:   NewDocumentService(db, log, rp.Document, nil, 1<<20, 0),
		jobs:   jobs,
		owner:  testutil.SeedUser(t, db, "owner@example.com").ID,
	}
	f.analyses = NewAnalysisService(db, log, rp.Analysis, rp.Document, jobs, models, emit, nil, AnalysisConfig{
		ChunkWords:    1000,
		MinChunkWords: 20,
		MaxChunks:     50,
		Concurrency:   3,
		MaxWords:      5000,
	})
	return f
}

func statusOf(t *testing.T, err error) (int, string) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T: %v", err, err)
	}
	return ae.Status, ae.Code
}
