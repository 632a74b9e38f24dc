package fileutils

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsafePath is returned when a path resolves outside of its base
// directory.
var ErrUnsafePath = errors.New("unsafe path")

// Resolve returns the cleaned absolute path of rel under baseDir. It fails
// with ErrUnsafePath unless the result lies strictly inside baseDir, which
// rules out "..", absolute paths, and the base directory itself. A base that
// is the filesystem root admits nothing. Symlinks are not evaluated and the
// filesystem is never touched.
func Resolve(baseDir, rel string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", errors.WithStack(err)
	}

	var abs string
	if filepath.IsAbs(rel) {
		abs = filepath.Clean(rel)
	} else {
		abs = filepath.Join(base, rel)
	}

	prefix := base + string(filepath.Separator)
	if !strings.HasPrefix(abs, prefix) {
		return "", errors.Wrapf(ErrUnsafePath, "%q escapes %q", rel, baseDir)
	}

	return abs, nil
}

// RelativeSlashPath returns target relative to base using forward slashes,
// which is how filenames are stored in the catalog.
func RelativeSlashPath(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return filepath.ToSlash(rel), nil
}
