package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

func TestReportRender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.analyses.Analyze(ctx, f.owner, AnalyzeRequest{Source: Source{Text: "A passage worth scoring.", Title: "Memo"}, Kind: "quality"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	rs := NewReportService(logger.NewNop(), f.analyses)

	body, ct, err := rs.Render(ctx, f.owner, a.ID, "md")
	if err != nil {
		t.Fatalf("Render md: %v", err)
	}
	if !strings.HasPrefix(ct, "text/markdown") || !strings.Contains(string(body), "Quality assessment: Memo") {
		t.Fatalf("unexpected markdown (%s):\n%s", ct, body)
	}

	body, ct, err = rs.Render(ctx, f.owner, a.ID, "png")
	if err != nil {
		t.Fatalf("Render png: %v", err)
	}
	if ct != "image/png" || len(body) < 8 || string(body[1:4]) != "PNG" {
		t.Fatalf("unexpected png (%s, %d bytes)", ct, len(body))
	}

	_, _, err = rs.Render(ctx, f.owner, a.ID, "docx")
	if _, code := statusOf(t, err); code != "invalid_format" {
		t.Fatalf("format code = %s", code)
	}
	_, _, err = rs.Render(ctx, f.owner, uuid.New(), "md")
	if status, _ := statusOf(t, err); status != http.StatusNotFound {
		t.Fatalf("missing analysis: %d", status)
	}
}
