package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/middleware"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/service"
)

type AuthHandler interface {
	Login(c *gin.Context)
	Me(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /api/v1/auth/login
func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.InvalidInput("Request body must be a JSON object with email and password."))
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /api/v1/auth/me
func (h *authHandler) Me(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		respondError(c, h.logger, apperr.Unauthorized("Not authenticated."))
		return
	}
	c.JSON(http.StatusOK, principal)
}
