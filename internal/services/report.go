package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/report"
)

type ReportService interface {
	// Render returns the report body and its content type.
	Render(ctx context.Context, ownerUserID, analysisID uuid.UUID, format string) ([]byte, string, error)
}

type reportService struct {
	log      *logger.Logger
	analyses AnalysisService
}

func NewReportService(baseLog *logger.Logger, analyses AnalysisService) ReportService {
	return &reportService{log: baseLog.With("service", "ReportService"), analyses: analyses}
}

func (s *reportService) Render(ctx context.Context, ownerUserID, analysisID uuid.UUID, format string) ([]byte, string, error) {
	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, "", apierr.BadRequest("invalid_format", "%v", err)
	}
	a, err := s.analyses.Get(ctx, ownerUserID, analysisID)
	if err != nil {
		return nil, "", err
	}
	v, err := report.Decode(a)
	if err != nil {
		return nil, "", fmt.Errorf("decode analysis: %w", err)
	}
	var body []byte
	switch f {
	case report.FormatHTML:
		body, err = v.HTML()
	case report.FormatPNG:
		body, err = v.ScoreCardPNG()
	default:
		body = []byte(v.Markdown())
	}
	if err != nil {
		s.log.Error("Report render failed", "analysis_id", analysisID, "format", f, "error", err)
		return nil, "", err
	}
	return body, f.ContentType(), nil
}
