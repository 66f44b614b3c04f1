package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"safevoice/config"
	"safevoice/internal/database"
	"safevoice/internal/router"
	"safevoice/internal/service"
	"safevoice/internal/ws"
	"safevoice/pkg/sealbox"
	"safevoice/pkg/storage"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() && cfg.Crypto.FieldKey == "change-me-field-key" {
		log.Fatal("FIELD_ENCRYPTION_KEY must be set in production")
	}
	box, err := sealbox.NewFromSecret(cfg.Crypto.FieldKey)
	if err != nil {
		log.Fatal("field encryption", zap.Error(err))
	}
	database.RegisterEncryption(box)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	if err := database.SeedAdmin(ctx, db, &cfg.Seed, log); err != nil {
		log.Fatal("seed admin", zap.Error(err))
	}

	store, err := storage.Open(storage.Options{
		Driver:         cfg.Storage.Driver,
		LocalDir:       cfg.Storage.LocalDir,
		LocalPublicURL: cfg.Storage.PublicURL,
		CloudName:      cfg.Cloudinary.CloudName,
		APIKey:         cfg.Cloudinary.APIKey,
		APISecret:      cfg.Cloudinary.APISecret,
		Folder:         cfg.Cloudinary.Folder,
		S3Endpoint:     cfg.S3.Endpoint,
		S3Region:       cfg.S3.Region,
		S3Bucket:       cfg.S3.Bucket,
		S3AccessKey:    cfg.S3.AccessKeyID,
		S3SecretKey:    cfg.S3.SecretAccessKey,
		S3PublicURL:    cfg.S3.PublicURL,
	})
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}

	fcm := service.NewFCMService(ctx, cfg.Firebase.CredentialsFile, log)
	if fcm == nil {
		log.Info("push notifications disabled")
	}

	engine := router.Setup(ctx, router.Deps{
		Config: cfg,
		DB:     db,
		Store:  store,
		Hub:    ws.NewHub(),
		Mailer: service.NewMailService(cfg.Mail, cfg.App.Name, log),
		FCM:    fcm,
		Log:    log,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return log
}
