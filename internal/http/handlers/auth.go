package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/http/response"
	"github.com/yungbote/originality-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) tokens(c *gin.Context, pair *services.TokenPair) {
	response.RespondOK(c, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_at":    pair.ExpiresAt,
		"expires_in":    int(ah.authService.GetAccessTTL().Seconds()),
	})
}

// POST /api/register
func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	user, err := ah.authService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": user})
}

// POST /api/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	pair, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ah.tokens(c, pair)
}

// POST /api/refresh
func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	pair, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ah.tokens(c, pair)
}

// POST /api/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.Logout(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/me
func (ah *AuthHandler) Me(c *gin.Context) {
	me, err := ah.authService.Me(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"me": me})
}
