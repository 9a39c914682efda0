package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"image.jpg", JPEG},
		{"image.JPEG", JPEG},
		{"thumb_small/thumb.jpg", JPEG},
		{"image.png", PNG},
		{"image.gif", GIF},
		{"image.tif", TIFF},
		{"image.bmp", BMP},
		{"image.webp", "application/octet-stream"},
		{"image", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			require.Equal(t, tt.want, ContentTypeFor(tt.file))
		})
	}
}

func TestItem_HasImage(t *testing.T) {
	require.False(t, Item{}.HasImage())
	require.True(t, Item{ImageFile: "image.jpg"}.HasImage())
}
