package uploads

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutesWithGroup(g *echo.Group, uploadService *Service) {
	h := &handler{uploadService: uploadService}

	g.POST("", h.upload)
}
