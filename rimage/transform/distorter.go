package transform

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// InverseBrownConradyDistortionType maps distorted normalized points back onto the ideal pinhole plane.
	InverseBrownConradyDistortionType = DistortionType("inverse_brown_conrady")
	// RationalDistortionType is the eight coefficient model (k1..k6, p1, p2) used for DistortionCoefficients.
	RationalDistortionType = DistortionType("rational")
)

// Distorter defines a Transform that takes an undistorted image and distorts it according to the model.
// Transform works on normalized image coordinates, i.e. after K^-1 has been applied.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
// Brown-Conrady parameters are in the rk1, rk2, rk3, tp1, tp2 order; rational parameters
// are in the k1, k2, p1, p2, k3, k4, k5, k6 order.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case InverseBrownConradyDistortionType:
		return NewInverseBrownConrady(parameters)
	case RationalDistortionType:
		coeffs := DistortionCoefficients(parameters)
		if err := coeffs.CheckValid(); err != nil {
			return nil, err
		}
		return coeffs, nil
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}
