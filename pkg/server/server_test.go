package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/looplet/looplet/internal/testgen"
	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/models"
	"github.com/looplet/looplet/pkg/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *config.Config) {
	t.Helper()

	fs := afero.NewOsFs()
	cfg := config.NewForTest()
	cfg.MediaDir = testgen.MediaDirs(t, fs)
	cfg.PublicDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PublicDir, "index.html"), []byte("<html>looplet</html>"), 0644))

	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	e, err := newEcho(cfg, testutils.NewDB(t), fs, clock)
	require.NoError(t, err)
	return e, cfg
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e, cfg := newTestServer(t)

	rr := serve(e, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, cfg.DatabaseFilePath, body.DB)

	rr = serve(e, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownAPIRoute(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t)

	for _, target := range []string{"/api/nope", "/api/media/1/extra", "/api"} {
		rr := serve(e, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.JSONEq(t, `{"ok":false,"error":"Page not found.","code":"not_found"}`, rr.Body.String(), target)
	}
}

func TestStaticMedia(t *testing.T) {
	t.Parallel()
	e, cfg := newTestServer(t)
	testgen.WriteFile(t, afero.NewOsFs(), filepath.Join(cfg.VideoDir(), "loops", "spin.gif"), testgen.FormatGIF, time.Time{})

	rr := serve(e, http.MethodGet, "/video/loops/spin.gif")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, testgen.Content(testgen.FormatGIF), rr.Body.Bytes())

	rr = serve(e, http.MethodGet, "/audio/missing.mp3")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), "looplet</html>")
}

func TestSinglePageAppFallback(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t)

	for _, target := range []string{"/", "/library/videos"} {
		rr := serve(e, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, rr.Code, target)
		assert.Contains(t, rr.Body.String(), "looplet</html>", target)
	}
}

func TestScanThenList(t *testing.T) {
	t.Parallel()
	e, cfg := newTestServer(t)
	fs := afero.NewOsFs()
	testgen.WriteFile(t, fs, filepath.Join(cfg.VideoDir(), "Beach_Day-01.mp4"), testgen.FormatMP4, time.Time{})
	testgen.WriteFile(t, fs, filepath.Join(cfg.AudioDir(), "waves.flac"), testgen.FormatFLAC, time.Time{})
	testgen.WriteFile(t, fs, filepath.Join(cfg.AudioDir(), "notes.txt"), testgen.FormatText, time.Time{})

	rr := serve(e, http.MethodPost, "/api/scan")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"ok":true,"videos":1,"audios":1}`, rr.Body.String())

	rr = serve(e, http.MethodGet, "/api/media?kind=video")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		OK    bool            `json:"ok"`
		Items []*models.Media `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Beach_Day-01.mp4", body.Items[0].Filename)
	assert.Equal(t, "Beach Day 01", body.Items[0].Title)

	rr = serve(e, http.MethodGet, "/api/media/abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDatabaseDebug(t *testing.T) {
	t.Parallel()

	fs := afero.NewOsFs()
	cfg := config.NewForTest()
	cfg.MediaDir = testgen.MediaDirs(t, fs)
	cfg.PublicDir = t.TempDir()
	cfg.DatabaseDebug = true

	e, err := newEcho(cfg, testutils.NewDB(t), fs, clockwork.NewRealClock())
	require.NoError(t, err)

	rr := serve(e, http.MethodGet, "/api/media?q=beach")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"items":[]}`, rr.Body.String())
}
