package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skoryh/dogtown/internal/app"
)

func newStaticFixture(t *testing.T) http.Handler {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>dogtown</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "style.css"), []byte("body {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data.bin"), []byte{1, 2, 3}, 0o644))

	application := app.New(testGame(t), &stubRecords{}, zap.NewNop(), app.Options{ManualTick: true})
	return NewServer(application, zap.NewNop(), root).Routes()
}

func get(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStaticIndex(t *testing.T) {
	h := newStaticFixture(t)

	w := get(h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/html", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "dogtown")

	w = get(h, http.MethodGet, "/index.html")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestStaticMimeTypes(t *testing.T) {
	h := newStaticFixture(t)

	w := get(h, http.MethodGet, "/style.css")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/css", w.Header().Get("Content-Type"))
	require.Equal(t, "max-age=3600", w.Header().Get("Cache-Control"))

	w = get(h, http.MethodGet, "/data.bin")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
}

func TestStaticNotFound(t *testing.T) {
	h := newStaticFixture(t)

	w := get(h, http.MethodGet, "/missing.html")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, codeFileNotFound, errorCode(t, w))
}

func TestStaticRejectsTraversal(t *testing.T) {
	h := newStaticFixture(t)

	w := get(h, http.MethodGet, "/../../etc/passwd")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, codeBadRequest, errorCode(t, w))
}

func TestStaticMethodNotAllowed(t *testing.T) {
	h := newStaticFixture(t)

	w := get(h, http.MethodPost, "/index.html")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
}

func TestStaticHead(t *testing.T) {
	h := newStaticFixture(t)

	w := get(h, http.MethodHead, "/style.css")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/css", w.Header().Get("Content-Type"))
	require.Empty(t, w.Body.String())
}
