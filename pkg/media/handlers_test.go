package media

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/looplet/looplet/pkg/binder"
	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/errcodes"
	"github.com/looplet/looplet/pkg/models"
	"github.com/looplet/looplet/pkg/testutils"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*handler, afero.Fs) {
	t.Helper()
	cfg := config.NewForTest()
	cfg.MediaDir = "/media"
	fs := afero.NewMemMapFs()
	return &handler{cfg: cfg, fs: fs, mediaService: newTestService(t)}, fs
}

func newMediaTestContext(t *testing.T, method, target, payload string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func withID(c echo.Context, id string) echo.Context {
	c.SetPath("/api/media/:id")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestHandlerList(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	seedCatalog(t, h.mediaService)

	c, rr := newMediaTestContext(t, http.MethodGet, "/api/media?kind=video&tag=loop", "")
	require.NoError(t, h.list(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		OK    bool            `json:"ok"`
		Items []*models.Media `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, []string{"b.mp4", "c.webm"}, filenames(resp.Items))
	assert.Equal(t, models.Tags{"loop", "summer"}, resp.Items[0].Tags)
}

func TestHandlerList_FiltersAreNotTrimmed(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	seedCatalog(t, h.mediaService)

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"leading space is required", "q=%20Loop", []string{"b.mp4"}},
		{"trailing space is required", "q=beat%20", []string{}},
		{"padded tag", "tag=%20loop", []string{}},
		{"padded kind does not filter", "kind=%20audio", []string{"A.gif", "b.mp4", "beat.flac", "c.webm", "under_score.mp3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, rr := newMediaTestContext(t, http.MethodGet, "/api/media?"+tt.query, "")
			require.NoError(t, h.list(c))

			var resp struct {
				Items []*models.Media `json:"items"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expected, filenames(resp.Items))
		})
	}
}

func TestHandlerList_EmptyIsArray(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	c, rr := newMediaTestContext(t, http.MethodGet, "/api/media", "")
	require.NoError(t, h.list(c))
	assert.JSONEq(t, `{"ok":true,"items":[]}`, rr.Body.String())
}

func TestHandlerExport(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	seedCatalog(t, h.mediaService)

	c, rr := newMediaTestContext(t, http.MethodGet, "/api/media/export?kind=audio", "")
	require.NoError(t, h.export(c))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get(echo.HeaderContentType), "text/csv")

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "kind", "filename", "title", "tags", "credit", "created_at", "mime_type"}, records[0])
	assert.Equal(t, "beat.flac", records[1][2])
	assert.Equal(t, "loop", records[1][4])
	assert.Equal(t, "under_score.mp3", records[2][2])
}

func TestHandlerRetrieve(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindVideo, Filename: "x.mov", Title: "x"})[0]

	c, rr := newMediaTestContext(t, http.MethodGet, "/api/media/"+strconv.Itoa(m.ID), "")
	require.NoError(t, h.retrieve(withID(c, strconv.Itoa(m.ID))))

	body := decode(t, rr)
	assert.Equal(t, true, body["ok"])
	item := body["item"].(map[string]any)
	assert.Equal(t, "x.mov", item["filename"])
	assert.Equal(t, []any{}, item["tags"])
	assert.Nil(t, item["credit"])
}

func TestHandlerRetrieve_Errors(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)

	for _, tt := range []struct {
		id   string
		code string
	}{
		{"abc", "bad_request"},
		{"0", "bad_request"},
		{"-4", "bad_request"},
		{"77", "not_found"},
	} {
		c, _ := newMediaTestContext(t, http.MethodGet, "/api/media/"+tt.id, "")
		err := h.retrieve(withID(c, tt.id))
		var codeErr *errcodes.Error
		require.ErrorAs(t, err, &codeErr, tt.id)
		assert.Equal(t, tt.code, codeErr.Code, tt.id)
	}
}

func TestHandlerUpdate(t *testing.T) {
	t.Parallel()
	h, _ := newTestHandler(t)
	m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindAudio, Filename: "song.mp3", Title: "song"})[0]
	id := strconv.Itoa(m.ID)

	t.Run("applies fields of the right type and skips the rest", func(t *testing.T) {
		payload := `{"id": 5, "title": 42, "tags": ["chill", "lofi"], "credit": "DJ", "created_at": "2023-03-04", "kind": "video"}`
		c, rr := newMediaTestContext(t, http.MethodPatch, "/api/media/"+id, payload)
		require.NoError(t, h.update(withID(c, id)))
		assert.Equal(t, http.StatusOK, rr.Code)

		item := decode(t, rr)["item"].(map[string]any)
		assert.Equal(t, "song", item["title"])
		assert.Equal(t, []any{"chill", "lofi"}, item["tags"])
		assert.Equal(t, "DJ", item["credit"])
		assert.Equal(t, "2023-03-04T00:00:00.000Z", item["created_at"])
		assert.Equal(t, "audio", item["kind"])
	})

	t.Run("invalid created_at is kept", func(t *testing.T) {
		c, rr := newMediaTestContext(t, http.MethodPatch, "/api/media/"+id, `{"created_at": "not a date", "title": "Song"}`)
		require.NoError(t, h.update(withID(c, id)))

		item := decode(t, rr)["item"].(map[string]any)
		assert.Equal(t, "Song", item["title"])
		assert.Equal(t, "2023-03-04T00:00:00.000Z", item["created_at"])
	})

	t.Run("empty body is a no-op", func(t *testing.T) {
		c, rr := newMediaTestContext(t, http.MethodPatch, "/api/media/"+id, "")
		require.NoError(t, h.update(withID(c, id)))
		assert.Equal(t, "Song", decode(t, rr)["item"].(map[string]any)["title"])
	})

	t.Run("unknown id", func(t *testing.T) {
		c, _ := newMediaTestContext(t, http.MethodPatch, "/api/media/999", `{"title":"x"}`)
		err := h.update(withID(c, "999"))
		assert.ErrorIs(t, err, errcodes.NotFound("Media"))
	})
}

func TestHandlerDelete(t *testing.T) {
	t.Parallel()

	t.Run("keeps the file by default", func(t *testing.T) {
		t.Parallel()
		h, fs := newTestHandler(t)
		m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindVideo, Filename: "keep.mp4"})[0]
		require.NoError(t, afero.WriteFile(fs, "/media/video/keep.mp4", []byte("x"), 0644))
		id := strconv.Itoa(m.ID)

		c, rr := newMediaTestContext(t, http.MethodDelete, "/api/media/"+id, "")
		require.NoError(t, h.delete(withID(c, id)))
		assert.JSONEq(t, `{"ok":true,"removedId":`+id+`,"fileDeleted":false,"fileError":null}`, rr.Body.String())

		exists, err := afero.Exists(fs, "/media/video/keep.mp4")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("removes the file when asked", func(t *testing.T) {
		t.Parallel()
		h, fs := newTestHandler(t)
		m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindAudio, Filename: "sub/gone.wav"})[0]
		require.NoError(t, afero.WriteFile(fs, "/media/audio/sub/gone.wav", []byte("x"), 0644))
		id := strconv.Itoa(m.ID)

		c, rr := newMediaTestContext(t, http.MethodDelete, "/api/media/"+id+"?deleteFile=1", "")
		require.NoError(t, h.delete(withID(c, id)))
		assert.JSONEq(t, `{"ok":true,"removedId":`+id+`,"fileDeleted":true,"fileError":null}`, rr.Body.String())

		exists, err := afero.Exists(fs, "/media/audio/sub/gone.wav")
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Zero(t, testutils.CountMedia(t, h.mediaService.db))
	})

	t.Run("absent file is not an error", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t)
		m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindVideo, Filename: "never.gif"})[0]
		id := strconv.Itoa(m.ID)

		c, rr := newMediaTestContext(t, http.MethodDelete, "/api/media/"+id+"?deleteFile=1", "")
		require.NoError(t, h.delete(withID(c, id)))
		assert.JSONEq(t, `{"ok":true,"removedId":`+id+`,"fileDeleted":false,"fileError":null}`, rr.Body.String())
	})

	t.Run("unsafe filename reports a file error", func(t *testing.T) {
		t.Parallel()
		h, fs := newTestHandler(t)
		require.NoError(t, afero.WriteFile(fs, "/etc/passwd", []byte("root"), 0644))
		m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindVideo, Filename: "../../etc/passwd"})[0]
		id := strconv.Itoa(m.ID)

		c, rr := newMediaTestContext(t, http.MethodDelete, "/api/media/"+id+"?deleteFile=1", "")
		require.NoError(t, h.delete(withID(c, id)))

		body := decode(t, rr)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, false, body["fileDeleted"])
		require.NotNil(t, body["fileError"])
		assert.Contains(t, body["fileError"], "unsafe path")
		assert.Zero(t, testutils.CountMedia(t, h.mediaService.db))

		exists, err := afero.Exists(fs, "/etc/passwd")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("only 1 turns on file removal", func(t *testing.T) {
		t.Parallel()
		h, fs := newTestHandler(t)
		m := testutils.InsertMedia(t, h.mediaService.db, &models.Media{Kind: models.MediaKindVideo, Filename: "stay.mp4"})[0]
		require.NoError(t, afero.WriteFile(fs, "/media/video/stay.mp4", []byte("x"), 0644))
		id := strconv.Itoa(m.ID)

		c, rr := newMediaTestContext(t, http.MethodDelete, "/api/media/"+id+"?deleteFile=true", "")
		require.NoError(t, h.delete(withID(c, id)))
		assert.Equal(t, false, decode(t, rr)["fileDeleted"])

		exists, err := afero.Exists(fs, "/media/video/stay.mp4")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestHandler(t)

		c, _ := newMediaTestContext(t, http.MethodDelete, "/api/media/31?deleteFile=1", "")
		err := h.delete(withID(c, "31"))
		assert.ErrorIs(t, err, errcodes.NotFound("Media"))
	})
}
