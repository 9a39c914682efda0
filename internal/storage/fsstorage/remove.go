package fsstorage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// swapped in tests: root removes read-only trees on the first attempt
var removeAll = os.RemoveAll

// RemoveTree deletes path and everything below it; a missing path is not an error.
// When the first attempt fails, every entry gets owner write access (and search
// access for directories) and the removal is retried once.
func RemoveTree(path string) error {
	err := removeAll(path)
	if err == nil {
		return nil
	}

	grantWrite(path)

	if retryErr := removeAll(path); retryErr != nil {
		return &CleanupError{Path: path, Err: errors.Join(err, retryErr)}
	}
	return nil
}

func grantWrite(root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		mode := info.Mode().Perm() | 0o200
		if d.IsDir() {
			mode |= 0o700
		}
		if mode != info.Mode().Perm() {
			_ = os.Chmod(p, mode)
		}
		return nil
	})
}
