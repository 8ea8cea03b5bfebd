package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError && code == "internal" {
		// Unclassified failures can carry driver or provider detail.
		msg = "internal error"
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr derives status and code from err.
func RespondErr(c *gin.Context, err error) {
	status, code := apierr.Classify(err)
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
