package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/http/response"
	"github.com/yungbote/originality-backend/internal/llm/router"
)

// ProviderLister is satisfied by *router.Router.
type ProviderLister interface {
	Providers() []router.ProviderInfo
	DefaultProvider() string
}

type ProviderHandler struct {
	providers ProviderLister
}

func NewProviderHandler(providers ProviderLister) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

// GET /api/providers
func (h *ProviderHandler) List(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"providers": h.providers.Providers(),
		"default":   h.providers.DefaultProvider(),
	})
}
