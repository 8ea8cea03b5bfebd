package apierr

import (
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/yungbote/originality-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidArgument, fmt.Sprintf(format, args...)))
}

func NotFound(code string, what string) *Error {
	return New(http.StatusNotFound, code, fmt.Errorf("%s %w", what, pkgerrors.ErrNotFound))
}

// Classify maps err to an HTTP status and code. Errors that are already
// *Error pass through; known sentinels get their conventional status.
func Classify(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status, ae.Code
	}
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, pkgerrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, pkgerrors.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}
