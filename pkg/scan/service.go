package scan

import (
	"context"
	"path"
	"path/filepath"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/filesystem"
	"github.com/looplet/looplet/pkg/fileutils"
	"github.com/looplet/looplet/pkg/media"
	"github.com/looplet/looplet/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/errgroup"
)

// Result counts the files found under each media root, whether or not they
// were already catalogued.
type Result struct {
	Videos int `json:"videos"`
	Audios int `json:"audios"`
}

type Service struct {
	cfg          *config.Config
	clock        clockwork.Clock
	fsService    *filesystem.Service
	mediaService *media.Service
}

func NewService(cfg *config.Config, fsService *filesystem.Service, mediaService *media.Service, clock clockwork.Clock) *Service {
	return &Service{
		cfg:          cfg,
		clock:        clock,
		fsService:    fsService,
		mediaService: mediaService,
	}
}

// Run walks the video and audio roots and adds every file that isn't in the
// catalog yet. Existing records are never modified, so running it again
// without filesystem changes is a no-op.
func (svc *Service) Run(ctx context.Context) (*Result, error) {
	log := logger.FromContext(ctx)

	var videos, audios []*models.Media
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videos, err = svc.collect(gctx, models.MediaKindVideo)
		return err
	})
	g.Go(func() error {
		var err error
		audios, err = svc.collect(gctx, models.MediaKindAudio)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.WithStack(err)
	}

	batch := make([]*models.Media, 0, len(videos)+len(audios))
	batch = append(batch, videos...)
	batch = append(batch, audios...)

	inserted, err := svc.mediaService.UpsertMediaBatch(ctx, batch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store scanned media")
	}

	log.Info("scan complete", logger.Data{
		"videos":   len(videos),
		"audios":   len(audios),
		"inserted": inserted,
	})

	return &Result{Videos: len(videos), Audios: len(audios)}, nil
}

// collect builds a catalog record for every file of the given kind.
func (svc *Service) collect(ctx context.Context, kind models.MediaKind) ([]*models.Media, error) {
	root := svc.cfg.RootFor(kind)

	files, err := svc.fsService.Walk(ctx, root, kind.Extensions())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}
	slices.Sort(files)

	items := make([]*models.Media, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items = append(items, svc.record(kind, root, rel))
	}
	return items, nil
}

func (svc *Service) record(kind models.MediaKind, root, rel string) *models.Media {
	abs := filepath.Join(root, filepath.FromSlash(rel))

	modTime, err := svc.fsService.ModTime(abs)
	if err != nil {
		modTime = svc.clock.Now()
	}
	createdAt := models.FormatTimestamp(modTime)

	var mimeType *string
	if mt, err := svc.fsService.DetectMimeType(abs); err == nil {
		mimeType = &mt
	}

	return &models.Media{
		Kind:      kind,
		Filename:  rel,
		Title:     fileutils.TitleFromName(path.Base(rel)),
		Tags:      models.Tags{},
		CreatedAt: &createdAt,
		MimeType:  mimeType,
	}
}
