// Package storage builds the image store from application config
package storage

import (
	"fmt"
	"log"
	"strconv"

	"github.com/UnendingLoop/LostAndFound/internal/storage/fsstorage"
	"github.com/wb-go/wbf/config"
)

const defaultImageRoot = "./static/images"

// Getter is the part of *config.Config the store needs.
type Getter interface {
	GetString(key string) string
}

var _ Getter = (*config.Config)(nil)

func NewImageStore(cfg Getter) (*fsstorage.Store, error) {
	storeCfg, err := ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	store, err := fsstorage.New(storeCfg)
	if err != nil {
		return nil, err
	}

	log.Printf("Image store ready at %q with %d rendition sizes", store.Root(), len(storeCfg.Sizes))
	return store, nil
}

// ConfigFrom reads IMAGE_ROOT, THUMB_SIZES and JPEG_QUALITY, falling back to defaults for empty values.
func ConfigFrom(cfg Getter) (fsstorage.Config, error) {
	out := fsstorage.Config{
		ImageRoot:   cfg.GetString("IMAGE_ROOT"),
		Sizes:       fsstorage.DefaultSizes(),
		JPEGQuality: fsstorage.DefaultJPEGQuality,
	}

	if out.ImageRoot == "" {
		out.ImageRoot = defaultImageRoot
		log.Printf("IMAGE_ROOT is empty. Using default value %q...", out.ImageRoot)
	}

	if raw := cfg.GetString("THUMB_SIZES"); raw != "" {
		sizes, err := fsstorage.ParseSizeLabels(raw)
		if err != nil {
			return fsstorage.Config{}, fmt.Errorf("failed to parse THUMB_SIZES: %w", err)
		}
		out.Sizes = sizes
	}

	if raw := cfg.GetString("JPEG_QUALITY"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return fsstorage.Config{}, fmt.Errorf("failed to parse JPEG_QUALITY: %w", err)
		}
		out.JPEGQuality = q
	}

	return out, nil
}
