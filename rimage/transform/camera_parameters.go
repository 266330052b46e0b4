package transform

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// CameraParameters describes a calibrated camera and, optionally, how to map images through it.
// Distortion is given either as a coefficient vector or as Brown-Conrady parameters, not both.
type CameraParameters struct {
	Intrinsics   *PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Coefficients DistortionCoefficients   `json:"distortion_coefficients,omitempty"`
	BrownConrady *BrownConrady            `json:"distortion_parameters,omitempty"`
	Mapper       *MapperConfig            `json:"mapper,omitempty"`
}

// Validate ensures all parts of the parameters are valid.
func (cp *CameraParameters) Validate(path string) error {
	if cp == nil {
		return NewNoIntrinsicsError("camera parameters do not exist")
	}
	if err := cp.Intrinsics.CheckValid(); err != nil {
		return newConfigValidationError(path, "intrinsic_parameters", err)
	}
	if cp.Coefficients != nil && cp.BrownConrady != nil {
		return newConfigValidationError(path, "distortion_coefficients",
			errors.New("cannot be set together with distortion_parameters"))
	}
	if cp.Coefficients != nil {
		if err := cp.Coefficients.CheckValid(); err != nil {
			return newConfigValidationError(path, "distortion_coefficients", err)
		}
	}
	return cp.Mapper.Validate(joinPath(path, "mapper"))
}

// DistortionCoefficients returns the configured distortion in k1, k2, p1, p2[, k3...] order.
// No distortion yields five zero coefficients.
func (cp *CameraParameters) DistortionCoefficients() DistortionCoefficients {
	if cp.Coefficients != nil {
		return cp.Coefficients
	}
	return cp.BrownConrady.Coefficients()
}

// PinholeCameraModel returns the intrinsics paired with a forward distorter.
func (cp *CameraParameters) PinholeCameraModel() *PinholeCameraModel {
	return &PinholeCameraModel{PinholeCameraIntrinsics: cp.Intrinsics, Distortion: cp.DistortionCoefficients()}
}

// NewCameraParametersFromJSONFile reads and validates camera parameters from a JSON file.
func NewCameraParametersFromJSONFile(jsonPath string) (*CameraParameters, error) {
	cp := &CameraParameters{}
	if err := readJSONFile(jsonPath, cp); err != nil {
		return nil, err
	}
	if err := cp.Validate(jsonPath); err != nil {
		return nil, err
	}
	return cp, nil
}

// NewCameraParametersFromAttributes decodes and validates camera parameters from a generic
// attribute map, using the same field names as the JSON form.
func NewCameraParametersFromAttributes(attrs map[string]interface{}) (*CameraParameters, error) {
	cp := &CameraParameters{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           cp,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating decoder")
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "error decoding camera parameters")
	}
	if err := cp.Validate(""); err != nil {
		return nil, err
	}
	return cp, nil
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
