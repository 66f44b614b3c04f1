package handler

import (
	"net/http"
	"strconv"

	"safevoice/internal/middleware"
	"safevoice/internal/repository"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	reports   *service.ReportService
	users     *service.UserService
	analytics *service.AnalyticsService
	export    *service.ExportService
	audit     *service.AuditService
	log       *zap.Logger
}

func NewAdminHandler(
	reports *service.ReportService,
	users *service.UserService,
	analytics *service.AnalyticsService,
	export *service.ExportService,
	audit *service.AuditService,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		reports:   reports,
		users:     users,
		analytics: analytics,
		export:    export,
		audit:     audit,
		log:       log,
	}
}

// ListReports handles GET /admin/reports.
func (h *AdminHandler) ListReports(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, total, err := h.reports.AdminList(c.Request.Context(), middleware.GetPrincipal(c), f, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

// GetReport handles GET /admin/reports/:id.
func (h *AdminHandler) GetReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.reports.AdminGet(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ReviewReport handles PATCH /admin/reports/:id.
func (h *AdminHandler) ReviewReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reportPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	p := middleware.GetPrincipal(c)
	v, err := h.reports.Review(c.Request.Context(), p, id, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	meta := map[string]interface{}{"status": v.Status}
	if req.PriorityFlag != nil {
		meta["priority_flag"] = *req.PriorityFlag
	}
	auditLog(c, h.audit, p.UserID, "report_review", "report", id, meta)
	c.JSON(http.StatusOK, v)
}

// Analytics handles GET /admin/analytics. Premium admins get the full tier.
func (h *AdminHandler) Analytics(c *gin.Context) {
	a, err := h.analytics.Admin(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ExportReports streams the filtered reports as CSV.
func (h *AdminHandler) ExportReports(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	exp, err := h.export.Prepare(p, f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+exp.Filename+`"`)
	c.Status(http.StatusOK)
	if err := exp.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		// headers already sent
		h.log.Error("csv export failed", zap.Uint("user_id", p.UserID), zap.Error(err))
		return
	}
	auditLog(c, h.audit, p.UserID, "report_export", "report", 0, nil)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	active, ok := queryBool(c, "is_active")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	f := repository.UserFilter{
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		Plan:     c.Query("plan"),
		IsActive: active,
	}
	list, total, err := h.users.List(c.Request.Context(), middleware.GetPrincipal(c), f, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, err := h.users.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// UpdateUser handles PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role              *string `json:"role"`
		Plan              *string `json:"plan"`
		IsActive          *bool   `json:"is_active"`
		OrganizationID    *uint   `json:"organization_id"`
		ClearOrganization bool    `json:"clear_organization"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	p := middleware.GetPrincipal(c)
	v, err := h.users.Update(c.Request.Context(), p, id, service.AdminUserUpdate{
		Role:              req.Role,
		Plan:              req.Plan,
		IsActive:          req.IsActive,
		OrganizationID:    req.OrganizationID,
		ClearOrganization: req.ClearOrganization,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, p.UserID, "user_update", "user", id, map[string]interface{}{
		"role": v.Role, "plan": v.Plan, "is_active": v.IsActive,
	})
	c.JSON(http.StatusOK, v)
}

// ChangePlan handles POST /admin/users/:id/plan.
func (h *AdminHandler) ChangePlan(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Plan string `json:"plan" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plan is required")
		return
	}
	p := middleware.GetPrincipal(c)
	v, err := h.users.ChangePlan(c.Request.Context(), p, id, req.Plan)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, p.UserID, "user_plan_change", "user", id, map[string]interface{}{"plan": v.Plan})
	c.JSON(http.StatusOK, v)
}

// DeactivateUser handles DELETE /admin/users/:id. Users are never hard-deleted.
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p := middleware.GetPrincipal(c)
	if err := h.users.Deactivate(c.Request.Context(), p, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, p.UserID, "user_deactivate", "user", id, nil)
	c.Status(http.StatusNoContent)
}

// AuditLogs handles GET /admin/audit-logs.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	f := repository.AuditLogFilter{Action: c.Query("action"), Resource: c.Query("resource")}
	if raw := c.Query("user_id"); raw != "" {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "user_id must be numeric")
			return
		}
		u := uint(uid)
		f.UserID = &u
	}
	page, limit := parsePagination(c)
	list, total, err := h.audit.List(c.Request.Context(), middleware.GetPrincipal(c), f, page, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}
