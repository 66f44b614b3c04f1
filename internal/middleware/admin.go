package middleware

import (
	"net/http"

	"safevoice/internal/authz"
	"safevoice/internal/domain"

	"github.com/gin-gonic/gin"
)

// RequireCapability rejects callers the capability table does not allow.
func RequireCapability(want authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authz.Require(GetPrincipal(c), want)
		switch {
		case err == nil:
			c.Next()
		case domain.KindOf(err) == domain.KindUnauthenticated:
			abort(c, http.StatusUnauthorized, domain.ErrUnauthenticated.Code, domain.ErrUnauthenticated.Message)
		default:
			abort(c, http.StatusForbidden, domain.ErrForbidden.Code, domain.ErrForbidden.Message)
		}
	}
}
