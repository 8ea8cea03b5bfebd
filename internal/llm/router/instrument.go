package router

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/originality-backend/internal/llm"
	"github.com/yungbote/originality-backend/internal/pkg/httpx"
	"github.com/yungbote/originality-backend/internal/pkg/retry"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

// Observer receives per-call LLM telemetry. observability.Metrics implements it.
type Observer interface {
	ObserveLLM(provider, model, op, outcome string, d time.Duration)
	CacheLookup(provider string, hit bool)
}

var tracer = otel.Tracer("github.com/yungbote/originality-backend/internal/llm")

type instrumented struct {
	inner    llm.Engine
	provider string
	retry    retry.Config
	log      *logger.Logger
	observer Observer
}

func (e *instrumented) GenerateText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	ctx, span := e.start(ctx, "llm.generate", model, opts)
	defer span.End()
	start := time.Now()

	out, err := retry.WithBackoff(ctx, e.log, e.retry, e.provider+".generate", httpx.IsRetryableError, func(ctx context.Context) (string, error) {
		return e.inner.GenerateText(ctx, model, messages, opts)
	})
	e.finish(span, model, "generate", start, err)
	return out, err
}

// StreamText only retries while nothing has been emitted; after the first
// delta a failure is returned as-is.
func (e *instrumented) StreamText(ctx context.Context, model string, messages []llm.Message, opts llm.GenerateOptions, onDelta func(delta string)) (string, error) {
	ctx, span := e.start(ctx, "llm.stream", model, opts)
	defer span.End()
	start := time.Now()

	emitted := false
	retryable := func(err error) bool { return !emitted && httpx.IsRetryableError(err) }
	out, err := retry.WithBackoff(ctx, e.log, e.retry, e.provider+".stream", retryable, func(ctx context.Context) (string, error) {
		return e.inner.StreamText(ctx, model, messages, opts, func(d string) {
			emitted = true
			if onDelta != nil {
				onDelta(d)
			}
		})
	})
	e.finish(span, model, "stream", start, err)
	return out, err
}

func (e *instrumented) start(ctx context.Context, name, model string, opts llm.GenerateOptions) (context.Context, trace.Span) {
	schema := ""
	if opts.JSONSchema != nil {
		schema = opts.JSONSchema.Name
	}
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("llm.provider", e.provider),
		attribute.String("llm.model", model),
		attribute.String("llm.schema", schema),
	))
}

func (e *instrumented) finish(span trace.Span, model, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var ue *llm.UpstreamError
		if errors.As(err, &ue) {
			span.SetAttributes(attribute.Int("http.status_code", ue.StatusCode))
		}
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if e.observer != nil {
		e.observer.ObserveLLM(e.provider, model, op, outcome, time.Since(start))
	}
}
