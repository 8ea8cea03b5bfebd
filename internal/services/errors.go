package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/originality-backend/internal/llm"
	pkgerrors "github.com/yungbote/originality-backend/internal/pkg/errors"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
)

// wrapLLMErr attaches an HTTP status to provider failures. Errors that already
// carry one pass through.
func wrapLLMErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	var up *llm.UpstreamError
	switch {
	case errors.Is(err, llm.ErrUnknownProvider):
		return apierr.New(http.StatusBadRequest, "unknown_provider", fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
	case errors.As(err, &up):
		if up.StatusCode == http.StatusUnauthorized || up.StatusCode == http.StatusForbidden {
			return apierr.New(http.StatusBadGateway, "provider_auth_failed", err)
		}
		if up.StatusCode == http.StatusTooManyRequests {
			return apierr.New(http.StatusTooManyRequests, "provider_rate_limited", err)
		}
		return apierr.New(http.StatusBadGateway, "upstream_error", err)
	case errors.Is(err, llm.ErrInvalidJSON), errors.Is(err, llm.ErrEmptyCompletion):
		return apierr.New(http.StatusBadGateway, "invalid_model_output", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "upstream_timeout", err)
	}
	return err
}
