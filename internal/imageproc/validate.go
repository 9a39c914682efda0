// Package imageproc provides codec-level operations for uploaded photos: validation and rendition rendering.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"
)

var (
	ErrInvalidImage   = errors.New("payload is not a decodable image")
	ErrUnsupportedExt = errors.New("unsupported image file extension")
)

// MaxPixels caps the declared width*height of an image before any pixel buffer is allocated.
const MaxPixels int64 = 89_478_485

// Validate decodes the whole payload. Sniffing the header is not enough: truncated
// files and valid headers followed by garbage must be rejected too.
func Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if err := checkDimensions(bytes.NewReader(data)); err != nil {
		return err
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// ValidateFilename returns the extension of name exactly as supplied by the client,
// provided it names a format the codec can decode.
func ValidateFilename(name string) (string, error) {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedExt, name)
	}
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}
	return ext, nil
}

// checkDimensions reads only the image header.
func checkDimensions(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}
