package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/database"
	"github.com/looplet/looplet/pkg/migrations"
	"github.com/looplet/looplet/pkg/server"
	"github.com/looplet/looplet/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting looplet", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initDirs(cfg); err != nil {
		log.Err(err).Fatal("directory error")
	}
	log.Info("directories initialized", logger.Data{
		"db":     cfg.DatabaseFilePath,
		"media":  cfg.MediaDir,
		"public": cfg.PublicDir,
	})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initDirs creates the database directory and both media roots, and checks
// that the media root is writable so uploads don't fail later.
func initDirs(cfg *config.Config) error {
	dirs := []string{cfg.VideoDir(), cfg.AudioDir()}
	if cfg.DatabaseFilePath != ":memory:" {
		dirs = append(dirs, filepath.Dir(cfg.DatabaseFilePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory: %s", dir)
		}
	}

	testFile := filepath.Join(cfg.MediaDir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "media directory is not writable: %s", cfg.MediaDir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}
