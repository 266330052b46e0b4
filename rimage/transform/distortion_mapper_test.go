package transform

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lensdistort/logging"
	"go.viam.com/lensdistort/rimage"
)

// smoothImage is an opaque image whose channels vary slowly, so resampling it loses little.
func smoothImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(128 + 100*math.Sin(float64(x)/5)),
				G: uint8(128 + 100*math.Cos(float64(y)/7)),
				B: uint8(128 + 60*math.Sin(float64(x+y)/9)),
				A: 255,
			})
		}
	}
	return img
}

// centeredCameraMatrix has its principal point in the middle of size and a focal length of focal pixels.
func centeredCameraMatrix(size image.Point, focal float64) *mat.Dense {
	intrinsics := &PinholeCameraIntrinsics{
		Width:  size.X,
		Height: size.Y,
		Fx:     focal,
		Fy:     focal,
		Ppx:    float64(size.X-1) / 2,
		Ppy:    float64(size.Y-1) / 2,
	}
	return intrinsics.GetCameraMatrix()
}

// columnMajor visits x in the outer loop.
type columnMajor struct {
	size image.Point
}

func (o columnMajor) Len() int {
	return o.size.X * o.size.Y
}

func (o columnMajor) Coord(i int) image.Point {
	return image.Pt(i/o.size.Y, i%o.size.Y)
}

func newTestMapper(t *testing.T, conf *MapperConfig) *DistortionMapper {
	t.Helper()
	dm, err := NewDistortionMapper(conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return dm
}

func TestRowMajor(t *testing.T) {
	order := rowMajor{size: image.Pt(5, 3)}
	test.That(t, order.Len(), test.ShouldEqual, 15)
	for i := 0; i < order.Len(); i++ {
		c := order.Coord(i)
		test.That(t, rimage.RasterIndex(c.X, c.Y, 5), test.ShouldEqual, i)
	}
	pts := buildPointList(order)
	test.That(t, pts[0], test.ShouldResemble, r2.Point{X: 0, Y: 0})
	test.That(t, pts[4], test.ShouldResemble, r2.Point{X: 4, Y: 0})
	test.That(t, pts[5], test.ShouldResemble, r2.Point{X: 0, Y: 1})

	m, err := rimage.NewSamplingMap(5, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scatterPoints(order, pts[:3], m), test.ShouldBeError, "got 3 corrected points for a grid of 15")
}

func TestDistortImageIdentity(t *testing.T) {
	src := smoothImage(17, 11)
	size := src.Bounds().Size()
	matrices := map[string]mat.Matrix{
		"identity": mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
		"centered": centeredCameraMatrix(size, float64(size.X)),
	}
	for name, k := range matrices {
		for _, n := range []int{4, 5, 8} {
			for _, direction := range []string{"apply", "remove"} {
				t.Run(name+"_"+direction, func(t *testing.T) {
					dm := newTestMapper(t, &MapperConfig{Direction: direction})
					coeffs := make(DistortionCoefficients, n)

					m, err := dm.BuildSamplingMap(k, coeffs, size)
					test.That(t, err, test.ShouldBeNil)
					for y := 0; y < size.Y; y++ {
						for x := 0; x < size.X; x++ {
							sx, sy := m.At(x, y)
							test.That(t, sx, test.ShouldAlmostEqual, float32(x), 1e-4)
							test.That(t, sy, test.ShouldAlmostEqual, float32(y), 1e-4)
						}
					}

					out, err := dm.DistortImage(context.Background(), src, k, coeffs, size)
					test.That(t, err, test.ShouldBeNil)
					diff, err := rimage.CompareImages(src, out, image.Rectangle{})
					test.That(t, err, test.ShouldBeNil)
					test.That(t, diff.MaxChannelDelta, test.ShouldEqual, uint8(0))
					test.That(t, diff.AlphaMismatches, test.ShouldEqual, 0)
				})
			}
		}
	}
}

func TestDistortImageSolidColor(t *testing.T) {
	c := color.NRGBA{30, 60, 90, 255}
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, c)
		}
	}
	out, err := DistortImage(src, centeredCameraMatrix(image.Pt(4, 4), 4), make(DistortionCoefficients, 5), image.Pt(4, 4))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			test.That(t, out.NRGBAAt(x, y), test.ShouldResemble, c)
		}
	}
}

func TestDistortImageOutputSize(t *testing.T) {
	src := smoothImage(20, 10)
	k := centeredCameraMatrix(image.Pt(20, 10), 20)
	coeffs := DistortionCoefficients{-0.05, 0, 0, 0, 0}
	for _, size := range []image.Point{{7, 13}, {20, 10}, {40, 30}, {1, 1}} {
		out, err := DistortImage(src, k, coeffs, size)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Bounds(), test.ShouldResemble, image.Rectangle{Max: size})
	}

	// Output pixels past the source have nothing to sample.
	out, err := DistortImage(src, k, make(DistortionCoefficients, 4), image.Pt(40, 30))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.NRGBAAt(3, 3), test.ShouldResemble, src.NRGBAAt(3, 3))
	test.That(t, out.NRGBAAt(25, 5).A, test.ShouldEqual, uint8(0))
	test.That(t, out.NRGBAAt(5, 25).A, test.ShouldEqual, uint8(0))
	test.That(t, out.NRGBAAt(39, 29), test.ShouldResemble, color.NRGBA{})
}

func TestDistortImageOutOfBoundsIsTransparent(t *testing.T) {
	size := image.Pt(40, 30)
	src := smoothImage(size.X, size.Y)
	k := centeredCameraMatrix(size, 40)
	coeffs := DistortionCoefficients{-0.2, 0, 0, 0, 0}

	m, err := newTestMapper(t, nil).BuildSamplingMap(k, coeffs, size)
	test.That(t, err, test.ShouldBeNil)
	stats := m.Stats(size)
	test.That(t, stats.OutOfBounds, test.ShouldBeGreaterThan, 0)

	out, err := DistortImage(src, k, coeffs, size)
	test.That(t, err, test.ShouldBeNil)
	// Only pixels clearly on one side of the source edge are checked.
	clearly := func(v float32, limit int) (bool, bool) {
		f := float64(v)
		return f < -0.01 || f >= float64(limit)+0.01, f > 0.01 && f < float64(limit)-0.01
	}
	outside, inside := 0, 0
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			sx, sy := m.At(x, y)
			outX, inX := clearly(sx, size.X)
			outY, inY := clearly(sy, size.Y)
			switch {
			case outX || outY:
				outside++
				test.That(t, out.NRGBAAt(x, y).A, test.ShouldEqual, uint8(0))
			case inX && inY:
				inside++
				test.That(t, out.NRGBAAt(x, y).A, test.ShouldEqual, uint8(255))
			}
		}
	}
	test.That(t, outside, test.ShouldBeGreaterThan, 0)
	test.That(t, inside, test.ShouldBeGreaterThan, outside)
	test.That(t, out.NRGBAAt(0, 0).A, test.ShouldEqual, uint8(0))
	test.That(t, out.NRGBAAt(size.X/2, size.Y/2), test.ShouldResemble, src.NRGBAAt(size.X/2, size.Y/2))
}

func TestRasterOrderSymmetry(t *testing.T) {
	size := image.Pt(6, 4)
	k := centeredCameraMatrix(size, 6)
	coeffs := DistortionCoefficients{-0.1, 0.01, 0.002, 0, 0}
	dm := newTestMapper(t, nil)
	rows, cols := rowMajor{size: size}, columnMajor{size: size}

	expected, err := dm.BuildSamplingMap(k, coeffs, size)
	test.That(t, err, test.ShouldBeNil)

	same, err := dm.buildSamplingMap(k, coeffs, size, cols, cols)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldResemble, expected)
	test.That(t, cmp.Diff(expected.X, same.X), test.ShouldBeEmpty)
	test.That(t, cmp.Diff(expected.Y, same.Y), test.ShouldBeEmpty)

	scrambled, err := dm.buildSamplingMap(k, coeffs, size, rows, cols)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scrambled, test.ShouldNotResemble, expected)

	src := smoothImage(size.X*4, size.Y*4)
	good, err := dm.distortImage(context.Background(), src, k, coeffs, size, rows, rows)
	test.That(t, err, test.ShouldBeNil)
	bad, err := dm.distortImage(context.Background(), src, k, coeffs, size, rows, cols)
	test.That(t, err, test.ShouldBeNil)
	diff, err := rimage.CompareImages(good, bad, image.Rectangle{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff.MeanLabDistance, test.ShouldBeGreaterThan, 0)
}

func TestDistortImageRoundTrip(t *testing.T) {
	size := image.Pt(64, 48)
	src := smoothImage(size.X, size.Y)
	k := centeredCameraMatrix(size, 60)
	coeffs := DistortionCoefficients{0.05, 0, 0, 0, 0}
	ctx := context.Background()

	distorted, err := newTestMapper(t, &MapperConfig{Direction: "apply"}).DistortImage(ctx, src, k, coeffs, size)
	test.That(t, err, test.ShouldBeNil)
	restored, err := newTestMapper(t, &MapperConfig{Direction: "remove"}).DistortImage(ctx, distorted, k, coeffs, size)
	test.That(t, err, test.ShouldBeNil)

	interior := rimage.InteriorRect(size, 8)
	before, err := rimage.CompareImages(src, distorted, interior)
	test.That(t, err, test.ShouldBeNil)
	after, err := rimage.CompareImages(src, restored, interior)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, after.AlphaMismatches, test.ShouldEqual, 0)
	test.That(t, after.MaxChannelDelta, test.ShouldBeLessThan, uint8(8))
	test.That(t, after.MeanLabDistance, test.ShouldBeLessThan, 0.02)
	test.That(t, after.MeanLabDistance, test.ShouldBeLessThan, before.MeanLabDistance)
}

type failingLens struct {
	err error
}

func (fl failingLens) UndistortPoints(pts []r2.Point, _ mat.Matrix, _ DistortionCoefficients) ([]r2.Point, error) {
	return nil, fl.err
}

func (fl failingLens) DistortPoints(pts []r2.Point, _ mat.Matrix, _ DistortionCoefficients) ([]r2.Point, error) {
	return nil, fl.err
}

type failingRemapper struct {
	err error
}

func (fr failingRemapper) Remap(
	context.Context, *rimage.Mat, *rimage.SamplingMap, rimage.Interpolation, rimage.BorderMode,
) (*rimage.Mat, error) {
	return nil, fr.err
}

func TestDistortImageErrors(t *testing.T) {
	src := smoothImage(8, 8)
	size := image.Pt(8, 8)
	k := centeredCameraMatrix(size, 8)
	zero := make(DistortionCoefficients, 5)

	_, err := DistortImage(nil, k, zero, size)
	test.That(t, err, test.ShouldBeError, "input image is nil")

	_, err = DistortImage(src, k, DistortionCoefficients{0.1, 0.2, 0.3}, size)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "got 3")

	_, err = DistortImage(src, mat.NewDense(2, 3, nil), zero, size)
	test.That(t, err, test.ShouldBeError, "camera matrix must be 3x3, got 2x3")

	_, err = DistortImage(src, mat.NewDense(3, 3, nil), zero, size)
	test.That(t, err, test.ShouldBeError, "camera matrix is singular")

	_, err = DistortImage(src, k, zero, image.Point{})
	test.That(t, err, test.ShouldBeError, "invalid sampling map size (0, 0)")

	// Backend failures come back as is.
	lensErr := errors.New("lens failed")
	dm, err := NewDistortionMapperWithBackends(nil, failingLens{lensErr}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, err = dm.DistortImage(context.Background(), src, k, zero, size)
	test.That(t, err, test.ShouldEqual, lensErr)

	remapErr := errors.New("remap failed")
	dm, err = NewDistortionMapperWithBackends(nil, nil, failingRemapper{remapErr}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, err = dm.DistortImage(context.Background(), src, k, zero, size)
	test.That(t, err, test.ShouldEqual, remapErr)

	_, err = NewDistortionMapper(&MapperConfig{Interpolation: "bicubic"}, nil)
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestMapper(t, nil).DistortImage(ctx, src, k, zero, size)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestDistortImageLogs(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	dm, err := NewDistortionMapper(&MapperConfig{Interpolation: "linear"}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.Direction(), test.ShouldEqual, DirectionApply)

	_, err = dm.DistortImage(context.Background(), smoothImage(8, 6), centeredCameraMatrix(image.Pt(8, 6), 8),
		make(DistortionCoefficients, 5), image.Pt(4, 3))
	test.That(t, err, test.ShouldBeNil)
	entries := logs.FilterMessage("distorted image").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["interpolation"], test.ShouldEqual, "linear")
	test.That(t, fields["direction"], test.ShouldEqual, "apply")
}
