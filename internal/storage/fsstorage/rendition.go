package fsstorage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// generateRendition renders one size of the original at src into
// thumb_<label>/thumb.jpg next to it and returns that relative name.
// On failure only this rendition's directory is removed.
func (s *Store) generateRendition(src string, size SizeLabel) (string, error) {
	dir := filepath.Join(filepath.Dir(src), size.dirName())

	name, err := s.writeRendition(src, dir, size)
	if err == nil {
		return name, nil
	}
	if cErr := s.cleanup(dir); cErr != nil {
		return "", cErr
	}
	return "", err
}

func (s *Store) writeRendition(src, dir string, size SizeLabel) (string, error) {
	img, err := s.render(src, size.MaxWidth, size.MaxHeight)
	if err != nil {
		return "", err
	}

	if err := s.remove(dir); err != nil {
		return "", err
	}
	if err := os.Mkdir(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create rendition directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, renditionFile), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create rendition file: %w", err)
	}
	if err := s.encode(f, img, s.quality); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to flush rendition file: %w", err)
	}

	return path.Join(size.dirName(), renditionFile), nil
}
