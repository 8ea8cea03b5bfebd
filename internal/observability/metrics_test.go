package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.ObserveLLM("openai", "gpt-4o", "generate", "ok", 300*time.Millisecond)
	m.ObserveLLM("openai", "gpt-4o", "generate", "ok", 100*time.Millisecond)
	m.CacheLookup("openai", true)
	m.CacheLookup("openai", false)
	m.ObserveAnalysis("assessment", "ok", 2*time.Second)
	m.ObserveJob("analysis_run", "error", time.Second)
	m.ObserveAPI("GET", "/api/analyses/:id", 200, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.llmRequests.WithLabelValues("openai", "gpt-4o", "generate", "ok")); got != 2 {
		t.Fatalf("llm requests = %v", got)
	}
	if got := testutil.ToFloat64(m.cacheLookup.WithLabelValues("openai", "hit")); got != 1 {
		t.Fatalf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(m.jobs.WithLabelValues("analysis_run", "error")); got != 1 {
		t.Fatalf("jobs = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"orig_analyses_total", `route="/api/analyses/:id"`, "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLLM("x", "y", "z", "ok", time.Second)
	m.CacheLookup("x", true)
	m.ObserveAnalysis("a", "ok", time.Second)
	m.ObserveJob("j", "ok", time.Second)
	m.IncInflight()
	m.DecInflight()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestParseHeaders(t *testing.T) {
	h := parseHeaders(" api-key = abc , bad, x=1 ")
	if len(h) != 2 || h["api-key"] != "abc" || h["x"] != "1" {
		t.Fatalf("headers = %v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("expected nil")
	}
}
