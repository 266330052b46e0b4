package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lensdistort/rimage"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	switch {
	case params == nil:
		return NewNoIntrinsicsError("Intrinsics do not exist")
	case params.Width <= 0 || params.Height <= 0:
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	case params.Fx <= 0:
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	case params.Fy <= 0:
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	case params.Ppx < 0:
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	case params.Ppy < 0:
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// Size returns the image size the intrinsics were calibrated for.
func (params *PinholeCameraIntrinsics) Size() image.Point {
	if params == nil {
		return image.Point{}
	}
	return image.Pt(params.Width, params.Height)
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	intrinsics := &PinholeCameraIntrinsics{}
	if err := readJSONFile(jsonPath, intrinsics); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, ppx, ppy out of a 3x3 camera matrix.
// Skew is not representable and is rejected.
func NewPinholeCameraIntrinsicsFromMatrix(cameraMatrix mat.Matrix, size image.Point) (*PinholeCameraIntrinsics, error) {
	if _, _, err := checkCameraMatrix(cameraMatrix); err != nil {
		return nil, err
	}
	if cameraMatrix.At(0, 1) != 0 || cameraMatrix.At(1, 0) != 0 ||
		cameraMatrix.At(2, 0) != 0 || cameraMatrix.At(2, 1) != 0 || cameraMatrix.At(2, 2) != 1 {
		return nil, errors.New("camera matrix is not a pinhole matrix [[fx 0 ppx] [0 fy ppy] [0 0 1]]")
	}
	return &PinholeCameraIntrinsics{
		Width:  size.X,
		Height: size.Y,
		Fx:     cameraMatrix.At(0, 0),
		Fy:     cameraMatrix.At(1, 1),
		Ppx:    cameraMatrix.At(0, 2),
		Ppy:    cameraMatrix.At(1, 2),
	}, nil
}

func readJSONFile(jsonPath string, v interface{}) error {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return errors.Wrap(err, "error reading JSON data")
	}
	// Comments and trailing commas are stripped when the file is JWCC. Anything hujson rejects,
	// such as unquoted keys, is left for json5.
	if standard, err := hujson.Standardize(bytes.Clone(byteValue)); err == nil {
		byteValue = standard
	}
	if err := json5.Unmarshal(byteValue, v); err != nil {
		return errors.Wrap(err, "error parsing JSON string")
	}
	return nil
}

// PixelToPoint transforms a pixel with depth to a 3D point in the camera frame.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return 0, 0, 0
	}
	return (x - params.Ppx) / params.Fx * z, (y - params.Ppy) / params.Fy * z, z
}

// PointToPixel projects a 3D point to a pixel in an image plane.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z == 0 {
		// negative coordinates fall outside every image
		return -1.0, -1.0
	}
	return math.Round((x/z)*params.Fx + params.Ppx), math.Round((y/z)*params.Fy + params.Ppy)
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	return mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

// DistortionMap is a function that transforms the undistorted input points (u,v) to the distorted points (x,y)
// according to the model in PinholeCameraModel.Distortion.
func (params *PinholeCameraModel) DistortionMap() func(u, v float64) (float64, float64) {
	return func(u, v float64) (float64, float64) {
		if params.Distortion == nil {
			return u, v
		}
		x, y := params.Distortion.Transform((u-params.Ppx)/params.Fx, (v-params.Ppy)/params.Fy)
		return x*params.Fx + params.Ppx, y*params.Fy + params.Ppy
	}
}

// SamplingMap evaluates DistortionMap over the calibrated image size.
func (params *PinholeCameraModel) SamplingMap() (*rimage.SamplingMap, error) {
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return nil, err
	}
	m, err := rimage.NewSamplingMap(params.Width, params.Height)
	if err != nil {
		return nil, err
	}
	distortionMap := params.DistortionMap()
	for v := 0; v < params.Height; v++ {
		for u := 0; u < params.Width; u++ {
			x, y := distortionMap(float64(u), float64(v))
			m.Set(u, v, float32(x), float32(y))
		}
	}
	return m, nil
}

// UndistortImage takes an input image and creates a new image the same size with the same camera parameters
// as the original image, but undistorted according to the distortion model in PinholeCameraModel. A bilinear
// interpolation is used to interpolate values between image pixels; pixels mapping outside the input are
// left transparent.
func (params *PinholeCameraModel) UndistortImage(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if params.PinholeCameraIntrinsics == nil {
		return nil, NewNoIntrinsicsError("Intrinsics do not exist")
	}
	// dimensions should be equal between the image and what the intrinsics expect
	if b := img.Bounds(); params.Width != b.Dx() || params.Height != b.Dy() {
		return nil, errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			b.Dx(), b.Dy(), params.Width, params.Height)
	}
	m, err := params.SamplingMap()
	if err != nil {
		return nil, err
	}
	src, err := rimage.ImageToMat(img)
	if err != nil {
		return nil, err
	}
	out, err := rimage.NewRemapper(rimage.RemapperConfig{}).
		Remap(ctx, src, m, rimage.InterpolationLinear, rimage.BorderTransparent)
	if err != nil {
		return nil, err
	}
	return rimage.MatToImage(out)
}
