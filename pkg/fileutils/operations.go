package fileutils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// WriteFile streams r into path. The content is first written to a hidden
// temporary sibling and then renamed into place, so a failed upload never
// leaves a truncated file under its final name. Missing parent directories
// are created.
func WriteFile(fs afero.Fs, path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return 0, errors.WithStack(err)
	}

	tmpPath := filepath.Join(dir, ".upload-"+uuid.NewString())
	n, err := copyToFile(fs, tmpPath, r)
	if err != nil {
		_ = fs.Remove(tmpPath)
		return 0, err
	}

	err = fs.Rename(tmpPath, path)
	if err != nil {
		_ = fs.Remove(tmpPath)
		return 0, errors.WithStack(err)
	}

	return n, nil
}

func copyToFile(fs afero.Fs, path string, r io.Reader) (int64, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return n, errors.WithStack(err)
	}

	return n, errors.WithStack(f.Close())
}

// RemoveFile deletes path if it exists. It reports whether a file was
// actually removed; an already absent file is not an error.
func RemoveFile(fs afero.Fs, path string) (bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if !exists {
		return false, nil
	}

	err = fs.Remove(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return true, nil
}
