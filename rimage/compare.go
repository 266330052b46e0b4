package rimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// ImageDifference summarizes how far apart two images are over a region.
type ImageDifference struct {
	// Pixels is the number of pixels compared.
	Pixels int
	// MeanLabDistance is the mean CIE Lab distance over pixels opaque in both images.
	MeanLabDistance float64
	// MaxChannelDelta is the largest absolute difference of any R, G, B or A sample.
	MaxChannelDelta uint8
	// AlphaMismatches counts pixels transparent in exactly one of the images.
	AlphaMismatches int
}

// CompareImages compares a and b over region. An empty region compares the whole images, which
// must then have the same size.
func CompareImages(a, b image.Image, region image.Rectangle) (ImageDifference, error) {
	if a == nil || b == nil {
		return ImageDifference{}, errors.New("cannot compare nil image")
	}
	na, nb := imaging.Clone(a), imaging.Clone(b)
	if region.Empty() {
		if na.Bounds() != nb.Bounds() {
			return ImageDifference{}, errors.Errorf("image dimensions don't match (%d,%d) != (%d,%d)",
				na.Bounds().Dx(), na.Bounds().Dy(), nb.Bounds().Dx(), nb.Bounds().Dy())
		}
		region = na.Bounds()
	}
	if !region.In(na.Bounds()) || !region.In(nb.Bounds()) {
		return ImageDifference{}, errors.Errorf("region %v is not inside both images", region)
	}

	var diff ImageDifference
	var labTotal float64
	var labPixels int
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			ca, cb := na.NRGBAAt(x, y), nb.NRGBAAt(x, y)
			diff.Pixels++
			for _, d := range []uint8{
				absDiff(ca.R, cb.R), absDiff(ca.G, cb.G), absDiff(ca.B, cb.B), absDiff(ca.A, cb.A),
			} {
				if d > diff.MaxChannelDelta {
					diff.MaxChannelDelta = d
				}
			}
			if (ca.A == 0) != (cb.A == 0) {
				diff.AlphaMismatches++
				continue
			}
			if ca.A == 0 {
				continue
			}
			labTotal += toColorful(ca).DistanceLab(toColorful(cb))
			labPixels++
		}
	}
	if labPixels > 0 {
		diff.MeanLabDistance = labTotal / float64(labPixels)
	}
	return diff, nil
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// toColorful ignores alpha; colors are compared as stored (non-premultiplied).
func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// InteriorRect shrinks the bounds of size by margin pixels on every side. It is empty when
// nothing is left.
func InteriorRect(size image.Point, margin int) image.Rectangle {
	if margin < 0 {
		margin = 0
	}
	if 2*margin >= size.X || 2*margin >= size.Y {
		return image.Rectangle{}
	}
	return image.Rectangle{image.Pt(margin, margin), size.Sub(image.Pt(margin, margin))}
}
