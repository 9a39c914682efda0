package imageproc

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// Thumbnail opens the image at path, rotates it upright according to its EXIF
// orientation and fits it into maxW x maxH with Lanczos resampling.
// Images already inside the bounds are returned at their own size.
func Thumbnail(path string, maxW, maxH int) (image.Image, error) {
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("invalid thumbnail bounds %dx%d", maxW, maxH)
	}

	if err := checkFileDimensions(path); err != nil {
		return nil, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to DEcode source image in Thumbnail: %w", err)
	}

	return imaging.Fit(img, maxW, maxH, imaging.Lanczos), nil
}

func checkFileDimensions(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source image in Thumbnail: %w", err)
	}
	defer f.Close()
	return checkDimensions(f)
}

// EncodeJPEG writes img as a baseline JPEG. The encoder emits no EXIF segment,
// so renditions never carry orientation metadata.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to ENcode rendition in EncodeJPEG: %w", err)
	}
	return nil
}
