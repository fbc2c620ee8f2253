//go:build !windows

package shortcut

import (
	"context"
	"os"
	"path/filepath"
)

func linkPath(desktop, name string) string {
	return filepath.Join(desktop, name)
}

// create symlinks link to target, replacing whatever link is already there.
func create(_ context.Context, link, target string) error {
	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 && fi.IsDir() {
			return &os.PathError{Op: "symlink", Path: link, Err: os.ErrExist}
		}
		if err := os.Remove(link); err != nil {
			return err
		}
	}
	return os.Symlink(target, link)
}

// pointsInto reports whether link is a symlink whose target lies in dir.
func pointsInto(_ context.Context, link, dir string) (bool, error) {
	fi, err := os.Lstat(link)
	if err != nil {
		return false, err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}
	target, err := os.Readlink(link)
	if err != nil {
		return false, err
	}
	return within(target, dir), nil
}
