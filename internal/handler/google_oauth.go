package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"safevoice/config"
	"safevoice/internal/domain"
	"safevoice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie = "sv_oauth_state"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleTokenInfo  = "https://oauth2.googleapis.com/tokeninfo"
)

type GoogleOAuthHandler struct {
	cfg    *config.Config
	auth   *service.AuthService
	audit  *service.AuditService
	log    *zap.Logger
	client *http.Client
}

func NewGoogleOAuthHandler(cfg *config.Config, auth *service.AuthService, audit *service.AuditService, log *zap.Logger) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		cfg:    cfg,
		auth:   auth,
		audit:  audit,
		log:    log,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured", "code": "oauth_unavailable"})
		return false
	}
	return true
}

// Redirect sends the browser to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline))
}

type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Callback exchanges the code, fetches the profile and returns our tokens.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		badRequest(c, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
	code := c.Query("code")
	if code == "" {
		badRequest(c, "missing code")
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("google code exchange failed", zap.Error(err))
		badRequest(c, "exchange failed")
		return
	}
	resp, err := conf.Client(ctx, tok).Get(googleUserInfo)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get user info", "code": "oauth_upstream"})
		return
	}
	var info googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid user info", "code": "oauth_upstream"})
		return
	}
	h.login(c, service.GoogleIdentity{ID: info.ID, Email: info.Email, Name: info.Name}, "google_oauth_login")
}

// tokeninfoResponse is what https://oauth2.googleapis.com/tokeninfo returns for an id_token.
type tokeninfoResponse struct {
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

// Token accepts an ID token from a mobile Google sign-in.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id_token required")
		return
	}
	httpReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet,
		googleTokenInfo+"?id_token="+url.QueryEscape(req.IDToken), nil)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp, err := h.client.Do(httpReq)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respondError(c, h.log, domain.ErrInvalidToken)
		return
	}
	var info tokeninfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid token response", "code": "oauth_upstream"})
		return
	}
	if info.Aud != h.cfg.OAuth.GoogleClientID || info.EmailVerified != "true" {
		respondError(c, h.log, domain.ErrInvalidToken)
		return
	}
	h.login(c, service.GoogleIdentity{ID: info.Sub, Email: info.Email, Name: info.Name}, "google_oauth_token")
}

func (h *GoogleOAuthHandler) login(c *gin.Context, g service.GoogleIdentity, action string) {
	u, pair, created, err := h.auth.LoginWithGoogle(c.Request.Context(), g)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	auditLog(c, h.audit, u.ID, action, "auth", u.ID, map[string]interface{}{"created": created})
	body := tokenResponse(u, pair)
	body["is_new"] = created
	c.JSON(http.StatusOK, body)
}
