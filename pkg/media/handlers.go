package media

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/errcodes"
	"github.com/looplet/looplet/pkg/fileutils"
	"github.com/looplet/looplet/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/afero"
)

type handler struct {
	cfg          *config.Config
	fs           afero.Fs
	mediaService *Service
}

type itemsResponse struct {
	OK    bool            `json:"ok"`
	Items []*models.Media `json:"items"`
}

type itemResponse struct {
	OK   bool          `json:"ok"`
	Item *models.Media `json:"item"`
}

type deleteResponse struct {
	OK          bool    `json:"ok"`
	RemovedID   int     `json:"removedId"`
	FileDeleted bool    `json:"fileDeleted"`
	FileError   *string `json:"fileError"`
}

func parseID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errcodes.InvalidID("Media")
	}
	return id, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListMediaQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	items, err := h.mediaService.ListMedia(ctx, params.options())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, itemsResponse{true, items}))
}

func (h *handler) export(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListMediaQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	items, err := h.mediaService.ListMedia(ctx, params.options())
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set("Content-Disposition", `attachment; filename="looplet-media.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return WriteCSV(c.Response(), items)
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}

	m, err := h.mediaService.RetrieveMedia(ctx, RetrieveMediaOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, itemResponse{true, m}))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}

	// Clients send back whole items, and an empty body is a no-op.
	c.Set("disallow_unknown_fields", false)
	c.Set("disallow_empty_body", false)

	params := UpdateMediaPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	m, err := h.mediaService.UpdateMediaFields(ctx, id, params.fields())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, itemResponse{true, m}))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}

	params := DeleteMediaQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	m, err := h.mediaService.DeleteMedia(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := deleteResponse{OK: true, RemovedID: m.ID}
	if params.removeFile() {
		resp.FileDeleted, resp.FileError = h.removeFile(logger.FromContext(ctx), m)
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// removeFile deletes the file behind a removed record. The catalog row is
// already gone at this point, so failures are reported rather than returned.
func (h *handler) removeFile(log logger.Logger, m *models.Media) (bool, *string) {
	path, err := fileutils.Resolve(h.cfg.RootFor(m.Kind), m.Filename)
	if err == nil {
		var removed bool
		removed, err = fileutils.RemoveFile(h.fs, path)
		if err == nil {
			return removed, nil
		}
	}

	log.Warn("failed to remove media file", logger.Data{
		"media_id": m.ID,
		"filename": m.Filename,
		"error":    err.Error(),
	})
	msg := err.Error()
	return false, &msg
}
