package handler

import (
	"net/http"

	"safevoice/internal/middleware"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MeHandler struct {
	users   *service.UserService
	reports *service.ReportService
	log     *zap.Logger
}

func NewMeHandler(users *service.UserService, reports *service.ReportService, log *zap.Logger) *MeHandler {
	return &MeHandler{users: users, reports: reports, log: log}
}

func (h *MeHandler) GetProfile(c *gin.Context) {
	v, err := h.users.Profile(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// UpdateProfile changes username or email. Role and plan are accepted in the
// body only to be refused.
func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Plan     *string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	v, err := h.users.UpdateProfile(c.Request.Context(), middleware.GetPrincipal(c), service.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Plan:     req.Plan,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *MeHandler) Quota(c *gin.Context) {
	q, err := h.reports.Quota(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token required")
		return
	}
	if err := h.users.SetFCMToken(c.Request.Context(), middleware.GetPrincipal(c), req.Token); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
