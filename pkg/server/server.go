package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/looplet/looplet/pkg/binder"
	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/database"
	"github.com/looplet/looplet/pkg/errcodes"
	"github.com/looplet/looplet/pkg/filesystem"
	"github.com/looplet/looplet/pkg/media"
	"github.com/looplet/looplet/pkg/scan"
	"github.com/looplet/looplet/pkg/uploads"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/spf13/afero"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := newEcho(cfg, db, afero.NewOsFs(), clockwork.NewRealClock())
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, fs afero.Fs, clock clockwork.Clock) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())
	if cfg.DatabaseDebug {
		e.Use(queryLogging)
	}

	health.RegisterRoutes(e)

	// Every writer shares one media service so batches serialize on its lock.
	mediaService := media.NewService(db)
	scanService := scan.NewService(cfg, filesystem.NewService(fs), mediaService, clock)
	uploadService := uploads.NewService(cfg, fs, mediaService, clock)

	api := e.Group("/api")
	registerHealthRoutes(api, cfg, db)
	media.RegisterRoutesWithGroup(api.Group("/media"), mediaService, cfg, fs)
	scan.RegisterRoutesWithGroup(api.Group("/scan"), scanService)
	uploads.RegisterRoutesWithGroup(api.Group("/upload"), uploadService)
	api.Any("", notFoundHandler)
	api.Any("/*", notFoundHandler)

	e.Static("/video", cfg.VideoDir())
	e.Static("/audio", cfg.AudioDir())

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:    cfg.PublicDir,
		HTML5:   true,
		Skipper: skipAppAssets,
	}))

	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

// skipAppAssets keeps the single page app fallback away from the API and the
// media roots, which answer with their own 404s. Anything else that doesn't
// match a route falls through to echo's default not found error, which the
// static middleware turns into index.html.
func skipAppAssets(c echo.Context) bool {
	p := c.Request().URL.Path
	for _, prefix := range []string{"/api", "/video", "/audio"} {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// queryLogging logs every database query a request makes.
func queryLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		c.SetRequest(req.WithContext(database.WithLogging(req.Context())))
		return next(c)
	}
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
