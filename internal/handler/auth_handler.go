package handler

import (
	"net/http"

	"safevoice/internal/middleware"
	"safevoice/internal/models"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	svc   *service.AuthService
	audit *service.AuditService
	log   *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, audit *service.AuditService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, audit: audit, log: log}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest accepts a username or email in either field.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func tokenResponse(u *models.User, pair *service.TokenPair) gin.H {
	return gin.H{
		"user":          service.NewProfileView(u),
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username, email and password are required")
		return
	}
	u, pair, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, u.ID, "register", "auth", u.ID, nil)
	c.JSON(http.StatusCreated, tokenResponse(u, pair))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "password is required")
		return
	}
	login := req.Username
	if login == "" {
		login = req.Email
	}
	if login == "" {
		badRequest(c, "username or email is required")
		return
	}
	u, pair, err := h.svc.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, u.ID, "login", "auth", u.ID, nil)
	c.JSON(http.StatusOK, tokenResponse(u, pair))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token is required")
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token is required")
		return
	}
	p := middleware.GetPrincipal(c)
	if err := h.svc.Logout(c.Request.Context(), p, req.RefreshToken); err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, p.UserID, "logout", "auth", p.UserID, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "new_password is required")
		return
	}
	p := middleware.GetPrincipal(c)
	if err := h.svc.ChangePassword(c.Request.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, p.UserID, "change_password", "auth", p.UserID, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
