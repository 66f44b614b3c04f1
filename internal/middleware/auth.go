package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"safevoice/config"
	"safevoice/internal/auth"
	"safevoice/internal/authz"
	"safevoice/internal/domain"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// PrincipalLoader resolves the current role, plan and active flag of a user.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID uint) (authz.Principal, error)
}

// AuthRequired validates the bearer access token and reloads the user, so
// role, plan and deactivation apply to tokens already issued.
func AuthRequired(cfg *config.JWTConfig, users PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "missing_authorization", "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, "invalid_authorization", "invalid authorization format")
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, domain.ErrInvalidToken.Code, domain.ErrInvalidToken.Message)
			return
		}
		p, err := users.LoadPrincipal(c.Request.Context(), claims.UserID)
		if err != nil {
			var de *domain.Error
			if errors.As(err, &de) {
				abort(c, http.StatusUnauthorized, de.Code, de.Message)
				return
			}
			abort(c, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		c.Set(principalKey, p)
		c.Set("user_id", p.UserID)
		c.Set("role", string(p.Role))
		c.Next()
	}
}

// GetPrincipal returns the caller, or an anonymous principal on public routes.
func GetPrincipal(c *gin.Context) authz.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return authz.Anonymous()
	}
	p, _ := v.(authz.Principal)
	return p
}

// GetUserID returns the authenticated user ID from context (must be used after AuthRequired).
func GetUserID(c *gin.Context) uint {
	return GetPrincipal(c).UserID
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}
