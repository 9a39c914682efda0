package fsstorage

import (
	"errors"
	"fmt"
)

var (
	// ErrIngestFailed means a write, resize or encode step failed and the partial
	// asset was rolled back. The asset directory does not exist afterwards.
	ErrIngestFailed = errors.New("image ingest failed")
	// ErrCleanupFailed means a directory could not be removed even after a
	// permission fix-up. The on-disk asset may be partially populated.
	ErrCleanupFailed = errors.New("asset cleanup failed")

	ErrInvalidID     = errors.New("invalid asset identifier")
	ErrAssetNotFound = errors.New("asset not found")
	ErrUnknownSize   = errors.New("unknown rendition size")
)

// CleanupError reports the directory that could not be removed.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to remove %q: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

func (e *CleanupError) Is(target error) bool { return target == ErrCleanupFailed }
