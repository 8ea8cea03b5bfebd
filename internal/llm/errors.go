package llm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrNoMessages      = errors.New("no messages")
	ErrEmptyCompletion = errors.New("empty upstream completion")
	ErrInvalidJSON     = errors.New("upstream returned invalid json")
)

// UpstreamError is a non-2xx response from a provider API.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream http error: status=%d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream http error: status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}

func (e *UpstreamError) HTTPStatusCode() int { return e.StatusCode }
