package handler

import (
	"net/http"

	"safevoice/internal/middleware"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommentHandler struct {
	svc *service.CommentService
	log *zap.Logger
}

func NewCommentHandler(svc *service.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, log: log}
}

func (h *CommentHandler) List(c *gin.Context) {
	reportID, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), middleware.GetPrincipal(c), reportID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *CommentHandler) Create(c *gin.Context) {
	reportID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Message    string `json:"message" binding:"required"`
		IsInternal bool   `json:"is_internal"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.GetPrincipal(c), reportID, req.Message, req.IsInternal)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *CommentHandler) Update(c *gin.Context) {
	reportID, ok := paramID(c, "id")
	if !ok {
		return
	}
	commentID, ok := paramID(c, "comment_id")
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}
	v, err := h.svc.Update(c.Request.Context(), middleware.GetPrincipal(c), reportID, commentID, req.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
