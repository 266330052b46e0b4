package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// Interpolation is the name of a resampling kernel.
type Interpolation string

const (
	// InterpolationNearest takes the closest source pixel.
	InterpolationNearest = Interpolation("nearest")
	// InterpolationLinear is bilinear over a 2x2 neighbourhood.
	InterpolationLinear = Interpolation("linear")
	// InterpolationCubic is bicubic over a 4x4 neighbourhood.
	InterpolationCubic = Interpolation("cubic")
	// InterpolationLanczos4 is a 4-lobe windowed sinc over an 8x8 neighbourhood.
	InterpolationLanczos4 = Interpolation("lanczos4")
)

// cubicA is the free parameter of the cubic convolution kernel.
const cubicA = -0.75

// kernel computes 1D tap weights for a fractional offset in [0, 1). Taps start at anchor pixels
// before the base (floor) pixel.
type kernel struct {
	size, anchor int
	weights      func(frac float64, out []float64)
}

// ParseInterpolation validates an interpolation name. The empty string selects Lanczos4.
func ParseInterpolation(name string) (Interpolation, error) {
	if name == "" {
		return InterpolationLanczos4, nil
	}
	interp := Interpolation(name)
	if _, err := interp.kernel(); err != nil {
		return "", err
	}
	return interp, nil
}

func (interp Interpolation) kernel() (kernel, error) {
	switch interp {
	case InterpolationNearest:
		return kernel{1, 0, func(frac float64, out []float64) { out[0] = 1 }}, nil
	case InterpolationLinear:
		return kernel{2, 0, linearWeights}, nil
	case InterpolationCubic:
		return kernel{4, 1, cubicWeights}, nil
	case InterpolationLanczos4:
		return kernel{8, 3, lanczos4Weights}, nil
	default:
		return kernel{}, errors.Errorf("do not know how to interpolate with %q", interp)
	}
}

func linearWeights(frac float64, out []float64) {
	out[0] = 1 - frac
	out[1] = frac
}

func cubicWeights(frac float64, out []float64) {
	x := frac
	out[0] = ((cubicA*(x+1)-5*cubicA)*(x+1)+8*cubicA)*(x+1) - 4*cubicA
	out[1] = ((cubicA+2)*x-(cubicA+3))*x*x + 1
	out[2] = ((cubicA+2)*(1-x)-(cubicA+3))*(1-x)*(1-x) + 1
	out[3] = 1 - out[0] - out[1] - out[2]
}

// lanczos4Weights evaluates sinc(t)*sinc(t/4) at the distance of each of the 8 taps and
// normalizes the weights to sum to one. An integral sample position returns an exact delta.
func lanczos4Weights(frac float64, out []float64) {
	const anchor = 3
	if frac < 1e-9 {
		for i := range out[:8] {
			out[i] = 0
		}
		out[anchor] = 1
		return
	}
	sum := 0.
	for i := 0; i < 8; i++ {
		t := frac + anchor - float64(i)
		out[i] = sinc(t) * sinc(t/4)
		sum += out[i]
	}
	for i := 0; i < 8; i++ {
		out[i] /= sum
	}
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
