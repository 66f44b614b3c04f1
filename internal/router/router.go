package router

import (
	"context"
	"net/http"

	"safevoice/config"
	"safevoice/internal/authz"
	"safevoice/internal/handler"
	"safevoice/internal/middleware"
	"safevoice/internal/repository"
	"safevoice/internal/service"
	"safevoice/internal/ws"
	"safevoice/pkg/evidence"
	"safevoice/pkg/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-wide resources the API is built from. FCM and Mailer
// may be nil.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Store  storage.Store
	Hub    *ws.Hub
	Mailer service.Mailer
	FCM    *service.FCMService
	Log    *zap.Logger
}

// Setup wires repositories, services and handlers. Background work started
// here stops when ctx is done.
func Setup(ctx context.Context, d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	hub := d.Hub
	if hub == nil {
		hub = ws.NewHub()
	}
	mailer := d.Mailer
	if mailer == nil {
		mailer = service.NewMailService(config.MailConfig{}, cfg.App.Name, d.Log)
	}

	r := gin.New()
	r.Use(middleware.Recovery(d.Log), middleware.RequestLogger(d.Log), middleware.CORS(cfg.Server.CORSOrigins))
	rl := cfg.RateLimit
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, rl.Requests, rl.Window), middleware.ByIP))
	authLimit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, rl.Auth, rl.Window), middleware.ByIP)
	publicLimit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, rl.Public, rl.Window), middleware.ByIP)
	writeLimit := middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, rl.Writes, rl.Window), middleware.ByUserOrIP)

	repos := repository.NewRepos(d.DB)
	validator := evidence.NewValidator(evidence.Limits{
		MaxImageMB:    cfg.Upload.MaxImageMB,
		MaxVideoMB:    cfg.Upload.MaxVideoMB,
		MaxDocumentMB: cfg.Upload.MaxDocumentMB,
		ImageExts:     cfg.Upload.ImageExts,
		VideoExts:     cfg.Upload.VideoExts,
		DocumentExts:  cfg.Upload.DocumentExts,
	})

	// Services
	authSvc := service.NewAuthService(cfg, repos)
	auditSvc := service.NewAuditService(repos, d.Log)
	notifSvc := service.NewNotificationService(repos, hub, d.FCM, d.Log)
	reportSvc := service.NewReportService(repos, d.Store, validator, notifSvc, mailer, cfg.App.FrontendBaseURL, d.Log)
	commentSvc := service.NewCommentService(repos)
	accessSvc := service.NewAccessRequestService(repos, notifSvc, mailer, d.Log)
	analyticsSvc := service.NewAnalyticsService(repos)
	exportSvc := service.NewExportService(repos)
	userSvc := service.NewUserService(repos)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditSvc, d.Log)
	googleHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, auditSvc, d.Log)
	meHandler := handler.NewMeHandler(userSvc, reportSvc, d.Log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, d.Log)
	accessHandler := handler.NewAccessRequestHandler(accessSvc, auditSvc, d.Log)
	reportHandler := handler.NewReportHandler(reportSvc, analyticsSvc, cfg.Upload, d.Log)
	commentHandler := handler.NewCommentHandler(commentSvc, d.Log)
	adminHandler := handler.NewAdminHandler(reportSvc, userSvc, analyticsSvc, exportSvc, auditSvc, d.Log)

	authMw := middleware.AuthRequired(&cfg.JWT, authSvc)
	need := middleware.RequireCapability

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		r.Static("/media", cfg.Storage.LocalDir)
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authLimit, authHandler.Register)
			authGroup.POST("/login", authLimit, authHandler.Login)
			authGroup.POST("/refresh", authLimit, authHandler.Refresh)
			authGroup.POST("/logout", authMw, authHandler.Logout)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.GET("/google", googleHandler.Redirect)
			authGroup.GET("/google/callback", authLimit, googleHandler.Callback)
			authGroup.POST("/google/token", authLimit, googleHandler.Token)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", meHandler.GetProfile)
			me.PATCH("/profile", meHandler.UpdateProfile)
			me.GET("/quota", meHandler.Quota)
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
			me.GET("/notifications", notificationHandler.List)
			me.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			me.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		api.POST("/admin-requests", authMw, writeLimit, accessHandler.Submit)
		api.GET("/admin-requests/mine", authMw, accessHandler.ListMine)

		// Token lookups are public.
		api.GET("/reports/by-token/:token", publicLimit, reportHandler.ByToken)
		api.GET("/reports/by-token/:token/certificate", publicLimit, reportHandler.CertificateByToken)

		reports := api.Group("/reports")
		reports.Use(authMw)
		{
			reports.POST("", writeLimit, reportHandler.Create)
			reports.GET("", reportHandler.List)
			reports.GET("/analytics", reportHandler.Analytics)
			reports.GET("/:id", reportHandler.Get)
			reports.PATCH("/:id", reportHandler.Update)
			reports.DELETE("/:id", reportHandler.Delete)
			reports.GET("/:id/certificate", reportHandler.Certificate)
			reports.GET("/:id/comments", commentHandler.List)
			reports.POST("/:id/comments", writeLimit, commentHandler.Create)
			reports.PATCH("/:id/comments/:comment_id", commentHandler.Update)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, need(authz.ListReports))
		{
			admin.GET("/reports", adminHandler.ListReports)
			admin.GET("/reports/export", need(authz.ExportReports), adminHandler.ExportReports)
			admin.GET("/reports/:id", adminHandler.GetReport)
			admin.PATCH("/reports/:id", need(authz.TriageReport), adminHandler.ReviewReport)
			admin.GET("/analytics", need(authz.BasicAnalytics), adminHandler.Analytics)

			admin.GET("/access-requests", need(authz.ReviewAccessRequests), accessHandler.List)
			admin.POST("/access-requests/:id/review", need(authz.ReviewAccessRequests), accessHandler.Review)

			users := admin.Group("/users")
			users.Use(need(authz.ManageUsers))
			{
				users.GET("", adminHandler.ListUsers)
				users.GET("/:id", adminHandler.GetUser)
				users.PATCH("/:id", adminHandler.UpdateUser)
				users.POST("/:id/plan", need(authz.ChangePlan), adminHandler.ChangePlan)
				users.DELETE("/:id", adminHandler.DeactivateUser)
			}
			admin.GET("/audit-logs", need(authz.ViewAuditLog), adminHandler.AuditLogs)
		}
	}

	r.GET("/ws/notifications", ws.ServeNotifications(&cfg.JWT, hub, authSvc, d.Log))

	return r
}
