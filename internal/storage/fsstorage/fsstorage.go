// Package fsstorage keeps uploaded item photos on a local filesystem tree:
//
//	<root>/<id>/image<ext>
//	<root>/<id>/thumb_<label>/thumb.jpg
//
// An asset directory either holds the original and every configured rendition,
// or it does not exist. Uploads for the same id must be serialized by the caller.
package fsstorage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/LostAndFound/internal/imageproc"
	"github.com/UnendingLoop/LostAndFound/internal/mwlogger"
)

const (
	originalBase       = "image"
	renditionDirPrefix = "thumb_"
	renditionFile      = "thumb.jpg"

	dirPerm  = 0o755
	filePerm = 0o644
)

type Store struct {
	root    string
	sizes   []SizeLabel
	quality int

	// swapped in tests to inject failures
	remove func(path string) error
	render func(path string, maxW, maxH int) (image.Image, error)
	encode func(w io.Writer, img image.Image, quality int) error
}

func New(cfg Config) (*Store, error) {
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid image store config: %w", err)
	}

	root, err := filepath.Abs(cfg.ImageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image root: %w", err)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create image root: %w", err)
	}

	return &Store{
		root:    root,
		sizes:   append([]SizeLabel(nil), cfg.Sizes...),
		quality: cfg.JPEGQuality,
		remove:  RemoveTree,
		render:  imageproc.Thumbnail,
		encode:  imageproc.EncodeJPEG,
	}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) Sizes() []SizeLabel { return append([]SizeLabel(nil), s.sizes...) }

// Ingest stores the original from r as image<ext> under a fresh directory for id
// and renders every configured size. Any previous asset for id is discarded first.
// The bytes must already have passed imageproc.Validate.
//
// On failure the directory is removed and the error matches ErrIngestFailed,
// unless that removal fails too: then a *CleanupError is returned.
func (s *Store) Ingest(ctx context.Context, r io.Reader, filename, id string) (string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := validateID(id); err != nil {
		return "", err
	}
	ext, err := imageproc.ValidateFilename(filename)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", fmt.Errorf("%w: nil reader provided", ErrIngestFailed)
	}

	dir := s.assetDir(id)
	name, err := s.populate(dir, r, ext)
	if err == nil {
		logger.Info().Str("asset_id", id).Str("file", name).Msg("Image asset stored")
		return name, nil
	}

	logger.Warn().Err(err).Str("asset_id", id).Msg("Image ingest failed, rolling back asset directory")
	if cErr := s.cleanup(dir); cErr != nil {
		logger.Error().Err(cErr).Str("asset_id", id).Msg("Rollback of asset directory failed")
		return "", cErr
	}
	return "", fmt.Errorf("%w: %v", ErrIngestFailed, err)
}

func (s *Store) populate(dir string, r io.Reader, ext string) (string, error) {
	if err := s.remove(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	name := originalBase + ext
	src := filepath.Join(dir, name)
	if err := writeFile(src, r); err != nil {
		return "", fmt.Errorf("failed to write original: %w", err)
	}

	for _, size := range s.sizes {
		if _, err := s.generateRendition(src, size); err != nil {
			return "", fmt.Errorf("rendition %q: %w", size.Name, err)
		}
	}
	return name, nil
}

// Original returns the path of the single image.* file stored for id.
func (s *Store) Original(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	dir := s.assetDir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrAssetNotFound
		}
		return "", fmt.Errorf("failed to read asset directory: %w", err)
	}

	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), originalBase+".") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", ErrAssetNotFound
}

// Rendition returns the path of the rendition file for id and label.
func (s *Store) Rendition(id, label string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	size, ok := s.size(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSize, label)
	}

	path := filepath.Join(s.assetDir(id), size.dirName(), renditionFile)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrAssetNotFound
		}
		return "", fmt.Errorf("failed to stat rendition: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrAssetNotFound
	}
	return path, nil
}

// Remove deletes the whole asset of id. Missing assets are not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.cleanup(s.assetDir(id)); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("asset_id", id).Msg("Failed to remove image asset")
		return err
	}
	return nil
}

func (s *Store) size(label string) (SizeLabel, bool) {
	for _, sz := range s.sizes {
		if sz.Name == label {
			return sz, true
		}
	}
	return SizeLabel{}, false
}

func (s *Store) assetDir(id string) string {
	return filepath.Join(s.root, id)
}

// cleanup always reports failures as *CleanupError.
func (s *Store) cleanup(path string) error {
	err := s.remove(path)
	if err == nil {
		return nil
	}
	var ce *CleanupError
	if errors.As(err, &ce) {
		return ce
	}
	return &CleanupError{Path: path, Err: err}
}

func validateID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
