package handler

import (
	"errors"
	"net/http"
	"strconv"

	"safevoice/internal/domain"
	"safevoice/internal/middleware"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindQuotaExceeded:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes a *domain.Error as {"error","code"}. Anything else is
// logged and reported as a bare 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(statusFor(de.Kind), gin.H{"error": de.Message, "code": de.Code})
		return
	}
	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Uint("user_id", middleware.GetUserID(c)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal_error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}

// paramID parses a positive numeric path parameter, answering 404 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": "not_found"})
		return 0, false
	}
	return uint(id), true
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func paged(data interface{}, total int64, page, limit int) gin.H {
	return gin.H{"data": data, "total": total, "page": page, "limit": limit}
}

// queryBool reads an optional true/false query parameter.
func queryBool(c *gin.Context, key string) (*bool, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, key+" must be true or false")
		return nil, false
	}
	return &b, true
}

// auditLog records an action by the current caller.
func auditLog(c *gin.Context, a *service.AuditService, actorID uint, action, resource string, resourceID uint, meta map[string]interface{}) {
	if a == nil {
		return
	}
	a.Record(c.Request.Context(), service.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		Metadata:   meta,
	})
}
