package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/blueprintx-backend/internal/http/response"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
	"github.com/yungbote/blueprintx-backend/internal/services"
)

type AuthHandler struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthHandler(log *logger.Logger, auth services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	u, err := h.auth.RegisterUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warn("Signup failed", "error", err)
		response.RespondAPIError(c, err, "registration_failed")
		return
	}
	response.RespondCreated(c, gin.H{"user": u})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, err := h.auth.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondAPIError(c, err, "login_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.auth.GetAccessTTL().Seconds()),
	})
}
