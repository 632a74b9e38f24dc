package uploads

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	uploadService *Service
}

type uploadResponse struct {
	OK    bool     `json:"ok"`
	Saved []string `json:"saved"`
}

func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()

	// A request without files saves nothing but isn't an error.
	c.Set("disallow_empty_body", false)

	params := UploadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if params.Kind == "" {
		params.Kind = c.QueryParam("kind")
	}

	saved, err := h.uploadService.Save(ctx, params.kind(), params.payloads())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, uploadResponse{true, saved}))
}
