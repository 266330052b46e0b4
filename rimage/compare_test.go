package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestCompareImages(t *testing.T) {
	a := opaqueGradient(8, 8)
	b := opaqueGradient(8, 8)

	diff, err := CompareImages(a, b, image.Rectangle{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff, test.ShouldResemble, ImageDifference{Pixels: 64})

	b.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	b.SetNRGBA(7, 7, color.NRGBA{0, 0, 0, 0})
	diff, err = CompareImages(a, b, image.Rectangle{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff.Pixels, test.ShouldEqual, 64)
	test.That(t, diff.AlphaMismatches, test.ShouldEqual, 1)
	test.That(t, diff.MaxChannelDelta, test.ShouldEqual, uint8(255))
	test.That(t, diff.MeanLabDistance, test.ShouldBeGreaterThan, 0)

	// The interior skips both changed corners.
	diff, err = CompareImages(a, b, InteriorRect(image.Point{8, 8}, 1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff, test.ShouldResemble, ImageDifference{Pixels: 36})

	_, err = CompareImages(a, opaqueGradient(4, 8), image.Rectangle{})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = CompareImages(a, b, image.Rect(0, 0, 9, 9))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = CompareImages(nil, b, image.Rectangle{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInteriorRect(t *testing.T) {
	test.That(t, InteriorRect(image.Point{10, 6}, 2), test.ShouldResemble, image.Rect(2, 2, 8, 4))
	test.That(t, InteriorRect(image.Point{10, 6}, 0), test.ShouldResemble, image.Rect(0, 0, 10, 6))
	test.That(t, InteriorRect(image.Point{10, 6}, 3).Empty(), test.ShouldBeTrue)
}
