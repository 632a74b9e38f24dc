package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/looplet/looplet/pkg/config"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type healthHandler struct {
	cfg *config.Config
	db  *bun.DB
}

type healthResponse struct {
	OK bool   `json:"ok"`
	DB string `json:"db"`
}

func registerHealthRoutes(g *echo.Group, cfg *config.Config, db *bun.DB) {
	h := &healthHandler{cfg, db}
	g.GET("/health", h.health)
}

func (h *healthHandler) health(c echo.Context) error {
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		return errors.Wrap(err, "database unreachable")
	}
	return errors.WithStack(c.JSON(http.StatusOK, healthResponse{true, h.cfg.DatabaseFilePath}))
}
