package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/originality-backend/internal/http/handlers"
	httpMW "github.com/yungbote/originality-backend/internal/http/middleware"
	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/llm/mock"
	"github.com/yungbote/originality-backend/internal/llm/router"
	"github.com/yungbote/originality-backend/internal/observability"
	"github.com/yungbote/originality-backend/internal/realtime"
	"github.com/yungbote/originality-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	engine *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	hub := realtime.NewSSEHub(log)
	emit := &realtime.HubEmitter{Hub: hub}
	models := router.NewStatic("mock",
		&router.Route{Provider: "mock", Type: llm.TypeMock, DefaultModel: "mock-1", Models: []string{"mock-1"}, Engine: mock.New()},
	)

	auth := services.NewAuthService(db, log, rp.User, rp.UserToken, "test-secret", time.Hour, 24*time.Hour)
	jobs := services.NewJobService(db, log, rp.JobRun, services.NewJobNotifier(emit))
	docs := services.NewDocumentService(db, log, rp.Document, nil, 1<<20, 0)
	analyses := services.NewAnalysisService(db, log, rp.Analysis, rp.Document, jobs, models, emit, nil, services.AnalysisConfig{
		ChunkWords: 1000,
		MaxWords:   5000,
	})

	engine := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         observability.NewMetrics(),
		MaxBodyBytes:    64 << 10,
		AuthHandler:     httpH.NewAuthHandler(auth),
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, auth),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
		DocumentHandler: httpH.NewDocumentHandler(docs, 1<<20),
		AnalysisHandler: httpH.NewAnalysisHandler(analyses, services.NewReportService(log, analyses)),
		ProviderHandler: httpH.NewProviderHandler(models),
		JobHandler:      httpH.NewJobHandler(jobs),
		HealthHandler:   httpH.NewHealthHandler(db),
	})
	ts := &testServer{engine: engine}
	ts.token = ts.register(t, "writer@example.com", "correct-horse")
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, email, password string) string {
	t.Helper()
	rec := ts.do(t, "POST", "/api/register", map[string]string{"email": email, "password": password})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, "POST", "/api/login", map[string]string{"email": email, "password": password})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, rec, &out)
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatalf("missing tokens: %s", rec.Body.String())
	}
	return out.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, "GET", "/healthcheck", nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("healthcheck: %d", rec.Code)
	}
	rec := ts.do(t, "GET", "/metrics", nil)
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "orig_api_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestOversizedJSONBodyRejected(t *testing.T) {
	ts := newTestServer(t)
	big := strings.Repeat("word ", 20000)
	for _, path := range []string{"/api/documents/text", "/api/analyses"} {
		rec := ts.do(t, "POST", path, map[string]string{"title": "big", "text": big, "kind": "quality"})
		if rec.Code != stdhttp.StatusRequestEntityTooLarge {
			t.Fatalf("%s: code = %d %s", path, rec.Code, rec.Body.String())
		}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decode(t, rec, &env)
		if env.Error.Code != "body_too_large" {
			t.Fatalf("%s: envelope = %s", path, rec.Body.String())
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""
	rec := ts.do(t, "GET", "/api/documents", nil)
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decode(t, rec, &env)
	if env.Error.Code != "unauthorized" || env.Error.Message == "" {
		t.Fatalf("envelope = %+v", env)
	}

	ts.token = "not-a-jwt"
	if rec := ts.do(t, "GET", "/api/me", nil); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("bad token code = %d", rec.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/documents/text", map[string]string{
		"title": "Essay",
		"text":  "First paragraph has several words.\n\nSecond paragraph follows here.",
	})
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Document struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"document"`
	}
	decode(t, rec, &created)
	id := created.Document.ID

	rec = ts.do(t, "PATCH", "/api/documents/"+id, map[string]string{"title": "Renamed"})
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "Renamed") {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, "GET", "/api/documents/"+id+"/chunks?words=5", nil)
	var chunks struct {
		Count int `json:"count"`
	}
	decode(t, rec, &chunks)
	if rec.Code != stdhttp.StatusOK || chunks.Count != 2 {
		t.Fatalf("chunks: %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, "GET", "/api/documents", nil)
	var list struct {
		Total int64 `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 {
		t.Fatalf("total = %d", list.Total)
	}

	if rec := ts.do(t, "DELETE", "/api/documents/"+id, nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := ts.do(t, "GET", "/api/documents/"+id, nil); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
	if rec := ts.do(t, "GET", "/api/documents/nope", nil); rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestUploadPlainText(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("Uploaded notes about induction."))
	_ = mw.WriteField("title", "Notes")
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusCreated || !strings.Contains(rec.Body.String(), "induction") {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("POST", "/api/documents", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("Authorization", "Bearer "+ts.token)
	rec = httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	if rec.Code != stdhttp.StatusBadRequest || !strings.Contains(rec.Body.String(), "missing_file") {
		t.Fatalf("missing file: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeAndReport(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/analyses", map[string]any{
		"kind": "originality",
		"text": "A short argument that claims something new about old problems.",
	})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("analyze: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Analysis struct {
			ID     string   `json:"id"`
			Status string   `json:"status"`
			Score  *float64 `json:"score"`
		} `json:"analysis"`
	}
	decode(t, rec, &out)
	if out.Analysis.Status != "succeeded" || out.Analysis.Score == nil {
		t.Fatalf("analysis = %+v", out.Analysis)
	}

	rec = ts.do(t, "GET", "/api/analyses/"+out.Analysis.ID+"/report?format=md&download=1", nil)
	if rec.Code != stdhttp.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") {
		t.Fatalf("report: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".md") {
		t.Fatalf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	rec = ts.do(t, "GET", "/api/analyses?kind=originality", nil)
	var list struct {
		Total int64 `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 {
		t.Fatalf("list total = %d", list.Total)
	}

	rec = ts.do(t, "POST", "/api/analyses", map[string]any{"kind": "vibes", "text": "x"})
	if rec.Code != stdhttp.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid_kind") {
		t.Fatalf("invalid kind: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAsyncAnalysisReturnsJob(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "POST", "/api/analyses", map[string]any{
		"kind":  "cogency",
		"text":  "Queued text.",
		"async": true,
	})
	if rec.Code != stdhttp.StatusAccepted {
		t.Fatalf("code = %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	decode(t, rec, &out)
	rec = ts.do(t, "GET", "/api/jobs/"+out.JobID, nil)
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "analysis_run") {
		t.Fatalf("job: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRewriteStreamsEvents(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "POST", "/api/rewrites", map[string]any{
		"text":   "Make this sentence better.",
		"stream": true,
	})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("code = %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: RewriteDelta") || !strings.Contains(body, "event: RewriteDone") {
		t.Fatalf("stream body = %s", body)
	}
	if strings.Index(body, "RewriteDelta") > strings.Index(body, "RewriteDone") {
		t.Fatalf("done before delta: %s", body)
	}
}

func TestRewriteStreamValidationIsJSON(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "POST", "/api/rewrites", map[string]any{"stream": true})
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestProvidersAndRefresh(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/api/providers", nil)
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), `"default":"mock"`) {
		t.Fatalf("providers: %d %s", rec.Code, rec.Body.String())
	}

	ts.token = ""
	rec = ts.do(t, "POST", "/api/login", map[string]string{"email": "writer@example.com", "password": "correct-horse"})
	var pair struct {
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, rec, &pair)
	rec = ts.do(t, "POST", "/api/refresh", map[string]string{"refresh_token": pair.RefreshToken})
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "access_token") {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, "POST", "/api/login", map[string]string{"email": "writer@example.com", "password": "wrong-pass"})
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rec.Code)
	}
}
