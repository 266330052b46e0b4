package transform

import (
	"image/color"

	"github.com/pkg/errors"

	"go.viam.com/lensdistort/rimage"
)

// MapDirection selects which way the sampling map moves pixels.
type MapDirection string

const (
	// DirectionApply renders an ideal image as it would be seen through the distorted lens.
	// The map holds the undistorted location of every output pixel.
	DirectionApply = MapDirection("apply")
	// DirectionRemove removes lens distortion from a captured image.
	// The map holds the distorted location of every output pixel.
	DirectionRemove = MapDirection("remove")
)

// ParseMapDirection parses a direction name; the empty string is DirectionApply.
func ParseMapDirection(name string) (MapDirection, error) {
	switch d := MapDirection(name); d {
	case "":
		return DirectionApply, nil
	case DirectionApply, DirectionRemove:
		return d, nil
	default:
		return "", errors.Errorf("do not know how to map in direction %q", name)
	}
}

// MapperConfig configures a DistortionMapper. The zero value reproduces the
// default behavior: apply distortion, lanczos4, transparent border.
type MapperConfig struct {
	Direction     string  `json:"direction,omitempty"`
	Interpolation string  `json:"interpolation,omitempty"`
	Border        string  `json:"border,omitempty"`
	BorderColor   string  `json:"border_color,omitempty"`
	Parallelism   int     `json:"parallelism,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty"`
	Epsilon       float64 `json:"epsilon,omitempty"`
}

// mapperSettings is a validated MapperConfig.
type mapperSettings struct {
	direction     MapDirection
	interpolation rimage.Interpolation
	border        rimage.BorderMode
	borderColor   color.NRGBA
	parallelism   int
	criteria      TermCriteria
}

func newConfigValidationError(path, field string, err error) error {
	if path == "" {
		return errors.Wrapf(err, "invalid %q", field)
	}
	return errors.Wrapf(err, "%s: invalid %q", path, field)
}

// Validate ensures all parts of the config are valid.
func (conf *MapperConfig) Validate(path string) error {
	_, err := conf.settings(path)
	return err
}

func (conf *MapperConfig) settings(path string) (mapperSettings, error) {
	s := mapperSettings{criteria: DefaultTermCriteria()}
	if conf == nil {
		conf = &MapperConfig{}
	}
	var err error
	if s.direction, err = ParseMapDirection(conf.Direction); err != nil {
		return s, newConfigValidationError(path, "direction", err)
	}
	if s.interpolation, err = rimage.ParseInterpolation(conf.Interpolation); err != nil {
		return s, newConfigValidationError(path, "interpolation", err)
	}
	if s.border, err = rimage.ParseBorderMode(conf.Border); err != nil {
		return s, newConfigValidationError(path, "border", err)
	}
	if conf.BorderColor != "" {
		if s.borderColor, err = rimage.NewNRGBAFromHex(conf.BorderColor); err != nil {
			return s, newConfigValidationError(path, "border_color", err)
		}
	}
	if conf.Parallelism < 0 {
		return s, newConfigValidationError(path, "parallelism",
			errors.Errorf("must be zero (auto) or positive, got %d", conf.Parallelism))
	}
	s.parallelism = conf.Parallelism
	if conf.MaxIterations < 0 {
		return s, newConfigValidationError(path, "max_iterations",
			errors.Errorf("must be zero (default) or positive, got %d", conf.MaxIterations))
	}
	if conf.MaxIterations > 0 {
		s.criteria.MaxIterations = conf.MaxIterations
	}
	if conf.Epsilon < 0 {
		return s, newConfigValidationError(path, "epsilon", errors.Errorf("must not be negative, got %v", conf.Epsilon))
	}
	s.criteria.Epsilon = conf.Epsilon
	return s, nil
}
