package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"safevoice/internal/authz"
	"safevoice/internal/domain"
	"safevoice/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := middleware.NewInMemoryRateLimiter(ctx, 2, time.Minute)

	ok, _ := l.Allow("a")
	require.True(t, ok)
	ok, _ = l.Allow("a")
	require.True(t, ok)
	ok, retry := l.Allow("a")
	require.False(t, ok)
	require.Greater(t, retry, time.Duration(0))

	ok, _ = l.Allow("b")
	require.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, 1, time.Minute), middleware.ByIP))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
		if w.Code == http.StatusTooManyRequests {
			require.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimitByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			uid := uint(1)
			if id == "2" {
				uid = 2
			}
			c.Set("principal", authz.Principal{UserID: uid, Role: domain.RoleUser, Authenticated: true})
		}
		c.Next()
	})
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, 1, time.Minute), middleware.ByUserOrIP))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// same client address, separate buckets per user
	require.Equal(t, http.StatusNoContent, hit("1"))
	require.Equal(t, http.StatusTooManyRequests, hit("1"))
	require.Equal(t, http.StatusNoContent, hit("2"))
	require.Equal(t, http.StatusNoContent, hit(""))
	require.Equal(t, http.StatusTooManyRequests, hit(""))
}
