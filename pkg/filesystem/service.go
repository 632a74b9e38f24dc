package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/looplet/looplet/pkg/fileutils"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/spf13/afero"
)

type Service struct {
	fs afero.Fs
}

func NewService(fs afero.Fs) *Service {
	return &Service{fs}
}

// Walk recursively lists the files under root whose extension is one of exts
// (case-insensitive). Paths are relative to root and slash-separated; their
// order is unspecified. Hidden files and directories are skipped. A missing
// root yields an empty list. A root that is a symlink is followed; entries
// below it that can't be read are logged and skipped.
func (s *Service) Walk(ctx context.Context, root string, exts []string) ([]string, error) {
	log := logger.FromContext(ctx)
	files := make([]string, 0)

	exists, err := afero.DirExists(s.fs, root)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return files, nil
	}

	walkRoot := s.resolveRoot(root)

	err = afero.Walk(s.fs, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				return errors.WithStack(err)
			}
			log.Warn("skipping unreadable entry", logger.Data{"path": path, "error": err.Error()})
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != walkRoot && fileutils.IsHidden(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !fileutils.MatchesExtension(info.Name(), exts) {
			return nil
		}

		rel, err := fileutils.RelativeSlashPath(walkRoot, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return files, nil
}

// resolveRoot follows a symlinked root on the OS filesystem, since the walk
// itself doesn't descend through links.
func (s *Service) resolveRoot(root string) string {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return root
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return root
	}
	return resolved
}

// ModTime returns the modification time of path.
func (s *Service) ModTime(path string) (time.Time, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return time.Time{}, errors.WithStack(err)
	}
	return info.ModTime(), nil
}

// DetectMimeType sniffs the content type of path from its leading bytes.
func (s *Service) DetectMimeType(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return mtype.String(), nil
}
