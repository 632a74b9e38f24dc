package media

import (
	"github.com/labstack/echo/v4"
	"github.com/looplet/looplet/pkg/config"
	"github.com/spf13/afero"
)

// RegisterRoutesWithGroup registers catalog routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, mediaService *Service, cfg *config.Config, fs afero.Fs) {
	h := &handler{
		cfg:          cfg,
		fs:           fs,
		mediaService: mediaService,
	}

	g.GET("", h.list)
	g.GET("/export", h.export)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}
