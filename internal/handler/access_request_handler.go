package handler

import (
	"net/http"

	"safevoice/internal/middleware"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccessRequestHandler struct {
	svc   *service.AccessRequestService
	audit *service.AuditService
	log   *zap.Logger
}

func NewAccessRequestHandler(svc *service.AccessRequestService, audit *service.AuditService, log *zap.Logger) *AccessRequestHandler {
	return &AccessRequestHandler{svc: svc, audit: audit, log: log}
}

// Submit handles POST /admin-requests.
func (h *AccessRequestHandler) Submit(c *gin.Context) {
	var req struct {
		RequestType             string  `json:"request_type" binding:"required"`
		OrganizationName        *string `json:"organization_name"`
		OrganizationDescription *string `json:"organization_description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request_type is required")
		return
	}
	ar, err := h.svc.Submit(c.Request.Context(), middleware.GetPrincipal(c), service.AccessRequestInput{
		RequestType:             req.RequestType,
		OrganizationName:        req.OrganizationName,
		OrganizationDescription: req.OrganizationDescription,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ar)
}

func (h *AccessRequestHandler) ListMine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// List handles GET /admin/access-requests?status=.
func (h *AccessRequestHandler) List(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.svc.List(c.Request.Context(), middleware.GetPrincipal(c), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

// Review handles POST /admin/access-requests/:id/review.
func (h *AccessRequestHandler) Review(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action" binding:"required,oneof=approve reject"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "action must be approve or reject")
		return
	}
	p := middleware.GetPrincipal(c)
	ar, err := h.svc.Review(c.Request.Context(), p, id, service.AccessReviewInput{
		Approve: req.Action == "approve",
		Notes:   req.Notes,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, p.UserID, "access_request_"+req.Action, "admin_access_request", id, nil)
	c.JSON(http.StatusOK, ar)
}
