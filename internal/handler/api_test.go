package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"safevoice/config"
	"safevoice/internal/auth"
	"safevoice/internal/models"
	"safevoice/internal/router"
	"safevoice/internal/testutil"
	"safevoice/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type api struct {
	t      *testing.T
	cfg    *config.Config
	db     *gorm.DB
	fx     *testutil.Fixtures
	mailer *testutil.Mailer
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testutil.Config()
	dir := t.TempDir()
	cfg.Storage = config.StorageConfig{Driver: "local", LocalDir: dir, PublicURL: "http://localhost/media"}
	store, err := storage.NewLocal(dir, cfg.Storage.PublicURL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db := testutil.OpenDB(t)
	a := &api{t: t, cfg: cfg, db: db, fx: testutil.NewFixtures(t, db), mailer: &testutil.Mailer{}}
	a.engine = router.Setup(ctx, router.Deps{
		Config: cfg,
		DB:     db,
		Store:  store,
		Mailer: a.mailer,
		Log:    zap.NewNop(),
	})
	return a
}

func (a *api) token(u *models.User) string {
	a.t.Helper()
	tok, err := auth.GenerateAccessToken(&a.cfg.JWT, auth.Subject{
		UserID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role), Plan: string(u.Plan),
	})
	require.NoError(a.t, err)
	return tok
}

// do sends a JSON request as u, or anonymously when u is nil.
func (a *api) do(method, path string, body interface{}, u *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, u)
}

func (a *api) send(req *http.Request, u *models.User) *httptest.ResponseRecorder {
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(u))
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, code, decode(t, w)["code"])
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func multipartReport(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}
