package uploads

import (
	"context"
	"io"
	"path"

	"github.com/jonboulle/clockwork"
	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/errcodes"
	"github.com/looplet/looplet/pkg/filesystem"
	"github.com/looplet/looplet/pkg/fileutils"
	"github.com/looplet/looplet/pkg/media"
	"github.com/looplet/looplet/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/afero"
)

// Payload is one uploaded file: the name the client gave it and a way to
// read its contents.
type Payload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type Service struct {
	cfg          *config.Config
	clock        clockwork.Clock
	fs           afero.Fs
	fsService    *filesystem.Service
	mediaService *media.Service
}

func NewService(cfg *config.Config, fs afero.Fs, mediaService *media.Service, clock clockwork.Clock) *Service {
	return &Service{
		cfg:          cfg,
		clock:        clock,
		fs:           fs,
		fsService:    filesystem.NewService(fs),
		mediaService: mediaService,
	}
}

// Save writes every payload whose extension fits kind under the kind's root
// and catalogs them in one batch. Payloads with other extensions, or names
// that would land outside the root, are skipped. It returns the stored
// relative paths in upload order.
func (svc *Service) Save(ctx context.Context, kind models.MediaKind, files []Payload) ([]string, error) {
	if len(files) > svc.cfg.UploadMaxFiles {
		return nil, errcodes.TooManyFiles(svc.cfg.UploadMaxFiles)
	}

	log := logger.FromContext(ctx)
	root := svc.cfg.RootFor(kind)

	saved := []string{}
	batch := make([]*models.Media, 0, len(files))
	for _, f := range files {
		if !fileutils.MatchesExtension(f.Name, kind.Extensions()) {
			continue
		}

		abs, err := fileutils.Resolve(root, f.Name)
		if err != nil {
			log.Warn("skipping upload with unsafe name", logger.Data{"name": f.Name, "kind": kind, "error": err.Error()})
			continue
		}
		rel, err := fileutils.RelativeSlashPath(root, abs)
		if err != nil {
			return nil, err
		}

		if err := svc.write(abs, f); err != nil {
			return nil, errors.Wrapf(err, "failed to save %s", rel)
		}

		var mimeType *string
		if mt, err := svc.fsService.DetectMimeType(abs); err == nil {
			mimeType = &mt
		}

		saved = append(saved, rel)
		batch = append(batch, &models.Media{
			Kind:     kind,
			Filename: rel,
			Title:    fileutils.TitleFromName(path.Base(rel)),
			Tags:     models.Tags{},
			MimeType: mimeType,
		})
	}

	now := models.FormatTimestamp(svc.clock.Now())
	for _, m := range batch {
		m.CreatedAt = &now
	}

	if _, err := svc.mediaService.UpsertMediaBatch(ctx, batch); err != nil {
		return nil, errors.Wrap(err, "failed to catalog uploads")
	}

	log.Info("uploads saved", logger.Data{"kind": kind, "received": len(files), "saved": len(saved)})

	return saved, nil
}

func (svc *Service) write(abs string, f Payload) error {
	rc, err := f.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer rc.Close()

	_, err = fileutils.WriteFile(svc.fs, abs, rc)
	return err
}
