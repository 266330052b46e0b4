package utils

import (
	"path/filepath"
	"strings"
)

const (
	// MimeTypeJPEG is regular jpgs.
	MimeTypeJPEG = "image/jpeg"

	// MimeTypePNG is regular pngs.
	MimeTypePNG = "image/png"

	// MimeTypeTIFF is for tiff images.
	MimeTypeTIFF = "image/tiff"

	// MimeTypeBMP is for bitmap images.
	MimeTypeBMP = "image/bmp"

	// MimeTypeGIF is for gif images.
	MimeTypeGIF = "image/gif"

	// MimeTypeQOI is for .qoi "Quite OK Image" for lossless, fast encoding/decoding.
	MimeTypeQOI = "image/qoi"

	// MimeTypePPM is for portable pixmaps.
	MimeTypePPM = "image/x-portable-pixmap"
)

var extensionMimeTypes = map[string]string{
	".jpg":  MimeTypeJPEG,
	".jpeg": MimeTypeJPEG,
	".png":  MimeTypePNG,
	".tif":  MimeTypeTIFF,
	".tiff": MimeTypeTIFF,
	".bmp":  MimeTypeBMP,
	".gif":  MimeTypeGIF,
	".qoi":  MimeTypeQOI,
	".ppm":  MimeTypePPM,
}

// MimeTypeFromPath returns the image MIME type implied by the extension of path, or the empty
// string if it is not an image type we know how to encode.
func MimeTypeFromPath(path string) string {
	return extensionMimeTypes[strings.ToLower(filepath.Ext(path))]
}
