package scan

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	scanService *Service
}

type runResponse struct {
	OK bool `json:"ok"`
	*Result
}

func (h *handler) run(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.scanService.Run(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, runResponse{true, result}))
}
