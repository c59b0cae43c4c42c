package route

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectboard/internal/config"
	"detectboard/internal/logger"
	"detectboard/internal/middleware"
	"detectboard/internal/repository/sqlite"
	"detectboard/internal/service"
	"detectboard/internal/service/storage"
	"detectboard/internal/service/websocket"
)

func setupTestRoutes(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	staticDir := filepath.Join(dir, "static")
	require.NoError(t, os.MkdirAll(staticDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>detect</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "login.html"), []byte("<h1>login</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "style.css"), []byte("body{}"), 0644))

	cfg := &config.Config{
		Password:             "secret",
		StaticDirectory:      staticDir,
		ImageDirectory:       filepath.Join(dir, "images"),
		ImageBufferLimit:     10,
		ImageBufferFlush:     3600,
		DefaultConfidence:    0.25,
		DefaultIoU:           0.45,
		DefaultMaxDetections: 1000,
	}

	log, err := logger.New(filepath.Join(dir, "logs"), io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(log.Close)

	db, err := sqlite.New(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runs := sqlite.NewRunRepository(db)
	detections := sqlite.NewDetectionRepository(db)
	recorder := storage.NewRecorder(cfg, log, runs, detections)
	manager := service.NewManager(service.Dependencies{Recorder: recorder}, cfg, log)

	return SetupRoutes(manager, websocket.NewHubService(log), recorder, cfg, log, runs, detections), cfg
}

func get(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes_PublicPaths(t *testing.T) {
	h, _ := setupTestRoutes(t)

	rec := get(h, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "login")

	rec = get(h, "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_RequiresSession(t *testing.T) {
	h, cfg := setupTestRoutes(t)

	rec := get(h, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = get(h, "/api/config", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	session := &http.Cookie{Name: middleware.CookieName, Value: middleware.SessionToken(cfg.Password)}

	rec = get(h, "/", session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "detect")

	rec = get(h, "/api/config", session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detectionReady":false`)

	rec = get(h, "/api/runs", session)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(h, "/logs/info", session)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDynamicHTMLHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runs.html"), []byte("history"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "..", "secret.html"), []byte("nope"), 0644))
	h := dynamicHTMLHandler(dir)

	tests := []struct {
		path   string
		status int
	}{
		{"/runs", http.StatusOK},
		{"/missing", http.StatusNotFound},
		{"/../secret", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = tt.path
		h(rec, req)
		if rec.Code != tt.status {
			t.Errorf("GET %s = %d, expected %d", tt.path, rec.Code, tt.status)
		}
	}
}
