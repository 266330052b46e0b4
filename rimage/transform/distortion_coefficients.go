package transform

import (
	"fmt"
	"math"
)

// DistortionCoefficients holds lens distortion coefficients in the conventional
// k1, k2, p1, p2[, k3[, k4, k5, k6]] order. k4..k6 form the denominator of the
// rational radial model.
type DistortionCoefficients []float64

// radialTangential is the fully expanded form of a coefficient vector.
type radialTangential struct {
	k1, k2, k3, k4, k5, k6 float64
	p1, p2                 float64
}

// CheckValid checks that the coefficient count is one the model understands.
func (dc DistortionCoefficients) CheckValid() error {
	switch len(dc) {
	case 4, 5, 8:
		return nil
	default:
		return InvalidDistortionError(fmt.Sprintf("distortion coefficients must have 4, 5 or 8 elements, got %d", len(dc)))
	}
}

// ModelType returns the type of distortion model.
func (dc DistortionCoefficients) ModelType() DistortionType {
	return RationalDistortionType
}

// Parameters returns a copy of the coefficients.
func (dc DistortionCoefficients) Parameters() []float64 {
	return append([]float64{}, dc...)
}

// IsZero reports whether every coefficient is zero.
func (dc DistortionCoefficients) IsZero() bool {
	for _, c := range dc {
		if c != 0 {
			return false
		}
	}
	return true
}

func (dc DistortionCoefficients) expand() radialTangential {
	var rt radialTangential
	get := func(i int) float64 {
		if i < len(dc) {
			return dc[i]
		}
		return 0
	}
	rt.k1, rt.k2, rt.p1, rt.p2 = get(0), get(1), get(2), get(3)
	rt.k3, rt.k4, rt.k5, rt.k6 = get(4), get(5), get(6), get(7)
	return rt
}

// Transform applies the forward distortion to a normalized point.
func (dc DistortionCoefficients) Transform(x, y float64) (float64, float64) {
	return dc.expand().distort(x, y)
}

func (rt radialTangential) radial(r2 float64) float64 {
	num := 1 + ((rt.k3*r2+rt.k2)*r2+rt.k1)*r2
	den := 1 + ((rt.k6*r2+rt.k5)*r2+rt.k4)*r2
	return num / den
}

func (rt radialTangential) tangential(x, y, r2 float64) (float64, float64) {
	dx := 2*rt.p1*x*y + rt.p2*(r2+2*x*x)
	dy := rt.p1*(r2+2*y*y) + 2*rt.p2*x*y
	return dx, dy
}

func (rt radialTangential) distort(x, y float64) (float64, float64) {
	r2 := x*x + y*y
	radial := rt.radial(r2)
	dx, dy := rt.tangential(x, y, r2)
	return x*radial + dx, y*radial + dy
}

// undistort inverts distort with a fixed point iteration. It stops after maxIterations
// or as soon as accept reports the current estimate is good enough.
func (rt radialTangential) undistort(xd, yd float64, maxIterations int, accept func(x, y float64) bool) (float64, float64) {
	x, y := xd, yd
	for i := 0; i < maxIterations; i++ {
		r2 := x*x + y*y
		inv := 1 / rt.radial(r2)
		if inv < 0 || math.IsNaN(inv) {
			return xd, yd
		}
		dx, dy := rt.tangential(x, y, r2)
		x = (xd - dx) * inv
		y = (yd - dy) * inv
		if accept != nil && accept(x, y) {
			break
		}
	}
	return x, y
}
