package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// EnsureDir expands ~ in the joined path and creates the directory when missing.
func EnsureDir(path ...string) (string, error) {
	dir, err := homedir.Expand(filepath.Join(path...))
	if err != nil {
		return "", errors.WithMessage(err, "cant expand dir")
	}
	if err = os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.WithMessage(err, "cant create dir")
	}
	return dir, nil
}
