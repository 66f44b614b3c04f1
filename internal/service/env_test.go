package service_test

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"safevoice/internal/repository"
	"safevoice/internal/service"
	"safevoice/internal/testutil"
	"safevoice/pkg/evidence"
	"safevoice/pkg/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	repos    *repository.Repos
	fx       *testutil.Fixtures
	mailer   *testutil.Mailer
	pusher   *testutil.Pusher
	store    *hookStore
	mediaDir string

	notifications *service.NotificationService
	reports       *service.ReportService
	comments      *service.CommentService
	access        *service.AccessRequestService
	analytics     *service.AnalyticsService
	export        *service.ExportService
	users         *service.UserService
	auth          *service.AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := testutil.Config()
	db := testutil.OpenDB(t)
	repos := repository.NewRepos(db)
	mediaDir := t.TempDir()
	store, err := storage.NewLocal(mediaDir, "http://localhost/media")
	require.NoError(t, err)

	e := &env{
		db:       db,
		repos:    repos,
		fx:       testutil.NewFixtures(t, db),
		mailer:   &testutil.Mailer{},
		pusher:   &testutil.Pusher{},
		store:    &hookStore{Store: store},
		mediaDir: mediaDir,
	}
	log := zap.NewNop()
	e.notifications = service.NewNotificationService(repos, e.pusher, nil, log)
	validator := evidence.NewValidator(evidence.Limits{
		MaxImageMB:    cfg.Upload.MaxImageMB,
		MaxVideoMB:    cfg.Upload.MaxVideoMB,
		MaxDocumentMB: cfg.Upload.MaxDocumentMB,
		ImageExts:     cfg.Upload.ImageExts,
		VideoExts:     cfg.Upload.VideoExts,
		DocumentExts:  cfg.Upload.DocumentExts,
	})
	e.reports = service.NewReportService(repos, e.store, validator, e.notifications, e.mailer, cfg.App.FrontendBaseURL, log)
	e.comments = service.NewCommentService(repos)
	e.access = service.NewAccessRequestService(repos, e.notifications, e.mailer, log)
	e.analytics = service.NewAnalyticsService(repos)
	e.export = service.NewExportService(repos)
	e.users = service.NewUserService(repos)
	e.auth = service.NewAuthService(cfg, repos)
	return e
}

// hookStore runs afterPut once the next upload has been written.
type hookStore struct {
	storage.Store
	afterPut func()
}

func (h *hookStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.Object, error) {
	obj, err := h.Store.Put(ctx, key, r, size, contentType)
	if fn := h.afterPut; fn != nil && err == nil {
		h.afterPut = nil
		fn()
	}
	return obj, err
}

// storedFiles counts the regular files written under the media dir.
func (e *env) storedFiles(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(e.mediaDir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func pngUpload() *evidence.Upload {
	return &evidence.Upload{Filename: "photo.png", Size: int64(len(pngBytes)), File: bytes.NewReader(pngBytes)}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }
