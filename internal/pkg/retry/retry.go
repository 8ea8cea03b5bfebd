package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

// Config controls exponential backoff for upstream LLM calls.
type Config struct {
	// MaxRetries is the number of retries after the first attempt. 0 disables retrying.
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	MaxJitter   time.Duration
}

func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 || c.MaxBackoff < 0 || c.MaxJitter < 0 {
		return errors.New("backoff durations cannot be negative")
	}
	return nil
}

func Default() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// WithBackoff runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent. log may be nil.
func WithBackoff[T any](ctx context.Context, log *logger.Logger, cfg Config, operation string, isRetryable func(error) bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}
		if isRetryable == nil || !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		backoff := cfg.BaseBackoff << attempt
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
		wait := backoff + jitter(cfg.MaxJitter)

		if log != nil {
			log.Warn("retryable upstream error",
				"operation", operation,
				"attempt", attempt+1,
				"max_retries", cfg.MaxRetries,
				"backoff", wait.String(),
				"error", lastErr.Error(),
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
