package rimage

import (
	"image"
	"image/draw"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	_ "golang.org/x/image/webp" // register webp

	"go.viam.com/lensdistort/utils"
)

// ReadImageFromFile decodes the image at path. Any registered format is accepted (png, jpeg, gif,
// tiff, bmp, webp, ppm, qoi) and EXIF orientation is applied.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "error reading image %q", path)
	}
	return img, nil
}

// WriteImageToFile encodes img to path, choosing the format from the file extension. The image is
// written to a temporary file in the same directory and renamed over path once fully encoded.
func WriteImageToFile(path string, img image.Image) error {
	switch mimeType := utils.MimeTypeFromPath(path); mimeType {
	case utils.MimeTypeQOI:
		return writeAtomically(path, img, qoi.Encode)
	case utils.MimeTypePPM:
		// ppm has no alpha channel and only encodes the RGBA model, so pixels are written
		// premultiplied, as if composited over black.
		return writeAtomically(path, toRGBA(img), ppm.Encode)
	case utils.MimeTypeJPEG, utils.MimeTypePNG, utils.MimeTypeTIFF, utils.MimeTypeBMP, utils.MimeTypeGIF:
		format, err := imaging.FormatFromFilename(path)
		if err != nil {
			return errors.Wrapf(err, "error writing %s image %q", mimeType, path)
		}
		return writeAtomically(path, img, func(w io.Writer, img image.Image) error {
			return imaging.Encode(w, img, format)
		})
	default:
		return errors.Errorf("do not know how to encode image file %q", path)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

func writeAtomically(path string, img image.Image, encode func(io.Writer, image.Image) error) (err error) {
	dir, name := filepath.Split(path)
	tmpPath := filepath.Join(dir, "."+goutils.RandomAlphaString(8)+"-"+name)
	//nolint:gosec
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrapf(err, "error creating image file %q", path)
	}
	defer func() {
		if err != nil {
			goutils.UncheckedError(os.Remove(tmpPath))
		}
	}()
	if err := encode(f, img); err != nil {
		return multierr.Combine(errors.Wrapf(err, "error encoding image %q", path), f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
