package transform

import (
	"context"
	"image"
	"time"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lensdistort/logging"
	"go.viam.com/lensdistort/rimage"
)

// DistortionMapper renders images through a lens distortion model. It builds a dense
// backward sampling map from a LensModel and resamples the source with a Remapper.
// A DistortionMapper holds no per call state and is safe for concurrent use.
type DistortionMapper struct {
	lens     LensModel
	remapper rimage.Remapper
	settings mapperSettings
	logger   logging.Logger
}

// NewDistortionMapper returns a mapper using the numeric lens model and the default remapper.
func NewDistortionMapper(conf *MapperConfig, logger logging.Logger) (*DistortionMapper, error) {
	return NewDistortionMapperWithBackends(conf, nil, nil, logger)
}

// NewDistortionMapperWithBackends returns a mapper with the given lens model and remapper.
// A nil lens or remapper selects the default one.
func NewDistortionMapperWithBackends(
	conf *MapperConfig,
	lens LensModel,
	remapper rimage.Remapper,
	logger logging.Logger,
) (*DistortionMapper, error) {
	settings, err := conf.settings("")
	if err != nil {
		return nil, err
	}
	if lens == nil {
		lens = NumericLensModel{Criteria: settings.criteria}
	}
	if remapper == nil {
		remapper = rimage.NewRemapper(rimage.RemapperConfig{
			Parallelism: settings.parallelism,
			BorderValue: settings.borderColor,
		})
	}
	if logger == nil {
		logger = logging.NewBlankLogger("distortion_mapper")
	}
	return &DistortionMapper{
		lens:     lens,
		remapper: remapper,
		settings: settings,
		logger:   logger,
	}, nil
}

// Direction returns the direction the mapper's sampling maps move pixels.
func (dm *DistortionMapper) Direction() MapDirection {
	return dm.settings.direction
}

// BuildSamplingMap returns, for every pixel of an output of the given size, the source
// coordinate it samples from.
func (dm *DistortionMapper) BuildSamplingMap(
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
	size image.Point,
) (*rimage.SamplingMap, error) {
	order := rowMajor{size: size}
	return dm.buildSamplingMap(cameraMatrix, coeffs, size, order, order)
}

func (dm *DistortionMapper) buildSamplingMap(
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
	size image.Point,
	build, scatter rasterOrder,
) (*rimage.SamplingMap, error) {
	m, err := rimage.NewSamplingMap(size.X, size.Y)
	if err != nil {
		return nil, err
	}
	pts := buildPointList(build)

	var corrected []r2.Point
	switch dm.settings.direction {
	case DirectionRemove:
		corrected, err = dm.lens.DistortPoints(pts, cameraMatrix, coeffs)
	default:
		corrected, err = dm.lens.UndistortPoints(pts, cameraMatrix, coeffs)
	}
	if err != nil {
		return nil, err
	}
	if err := scatterPoints(scatter, corrected, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DistortImage resamples src through the lens model into a new image of the given size.
// The source and output sizes are independent; cameraMatrix is used as is for both.
func (dm *DistortionMapper) DistortImage(
	ctx context.Context,
	src image.Image,
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
	size image.Point,
) (*image.NRGBA, error) {
	order := rowMajor{size: size}
	return dm.distortImage(ctx, src, cameraMatrix, coeffs, size, order, order)
}

func (dm *DistortionMapper) distortImage(
	ctx context.Context,
	src image.Image,
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
	size image.Point,
	build, scatter rasterOrder,
) (*image.NRGBA, error) {
	start := time.Now()
	srcMat, err := rimage.ImageToMat(src)
	if err != nil {
		return nil, err
	}
	m, err := dm.buildSamplingMap(cameraMatrix, coeffs, size, build, scatter)
	if err != nil {
		return nil, err
	}
	mapped := time.Now()
	out, err := dm.remapper.Remap(ctx, srcMat, m, dm.settings.interpolation, dm.settings.border)
	if err != nil {
		return nil, err
	}
	img, err := rimage.MatToImage(out)
	if err != nil {
		return nil, err
	}
	dm.logger.CDebugw(ctx, "distorted image",
		"source", srcMat.Size(),
		"output", size,
		"direction", string(dm.settings.direction),
		"interpolation", string(dm.settings.interpolation),
		"border", string(dm.settings.border),
		"map_time", mapped.Sub(start),
		"remap_time", time.Since(mapped),
	)
	return img, nil
}

// DistortImage renders src as seen through the lens described by cameraMatrix and coeffs,
// using lanczos4 interpolation and a transparent border.
func DistortImage(
	src image.Image,
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
	size image.Point,
) (*image.NRGBA, error) {
	dm, err := NewDistortionMapper(nil, nil)
	if err != nil {
		return nil, err
	}
	return dm.DistortImage(context.Background(), src, cameraMatrix, coeffs, size)
}
