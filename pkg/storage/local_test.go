package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"safevoice/pkg/storage"

	"github.com/stretchr/testify/require"
)

func TestLocalPutDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.Open(storage.Options{Driver: "local", LocalDir: dir, LocalPublicURL: "http://files.test/media/"})
	require.NoError(t, err)

	ctx := context.Background()
	obj, err := store.Put(ctx, "reports/1/a.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "http://files.test/media/reports/1/a.pdf", obj.URL)

	data, err := os.ReadFile(filepath.Join(dir, "reports", "1", "a.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, obj.Key))
	_, err = os.Stat(filepath.Join(dir, "reports", "1", "a.pdf"))
	require.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, obj.Key))
}

func TestLocalKeyCannotEscapeRoot(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(dir, "media"), "")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../etc/evil.txt", strings.NewReader("x"), 1, "text/plain")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "media", "etc", "evil.txt"))
	require.NoError(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := storage.Open(storage.Options{Driver: "ftp"})
	require.Error(t, err)
}
