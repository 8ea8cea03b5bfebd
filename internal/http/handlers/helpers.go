package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/platform/ctxutil"
)

// ownerID is the authenticated user. RequireAuth guarantees it is set.
func ownerID(c *gin.Context) uuid.UUID {
	return ctxutil.UserID(c.Request.Context())
}

func pathUUID(c *gin.Context, name, code string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return uuid.Nil, apierr.BadRequest(code, "%s must be a uuid", name)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.BadRequest("invalid_query", "%s must be a non-negative integer", name)
	}
	return n, nil
}

func bindErr(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apierr.New(http.StatusRequestEntityTooLarge, "body_too_large", fmt.Errorf("request body exceeds %d bytes", tooBig.Limit))
	}
	return apierr.BadRequest("invalid_request", "%v", fmt.Errorf("decode body: %w", err))
}
