package transform

// InverseBrownConrady undoes a BrownConrady distortion: it maps distorted normalized points back
// to the ideal pinhole plane. It is serialized with the same keys as BrownConrady.
type InverseBrownConrady struct {
	BrownConrady
}

// Newton iterations stop after this many steps or once the reprojection error is below tolerance.
const (
	inverseMaxIterations = 20
	inverseTolerance     = 1e-10
)

// NewInverseBrownConrady reads parameters in the same order as NewBrownConrady.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	bc, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return bc.Inverse(), nil
}

// Inverse returns the model that undoes bc.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	if bc == nil {
		return nil
	}
	return &InverseBrownConrady{*bc}
}

// CheckValid fails only for a nil model.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters lists rk1, rk2, rk3, tp1, tp2.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.BrownConrady.Parameters()
}

// Transform finds the undistorted point whose BrownConrady distortion is (xd, yd).
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	return ibc.terms().invertNewton(xd, yd)
}

// invertNewton solves distort(xu, yu) = (xd, yd) by Newton-Raphson with the analytic Jacobian of
// the k1..k3, p1, p2 terms, starting from the distorted point. The rational terms are ignored.
func (rt radialTangential) invertNewton(xd, yd float64) (float64, float64) {
	xu, yu := xd, yd
	for i := 0; i < inverseMaxIterations; i++ {
		fx, fy := rt.distort(xu, yu)
		ex, ey := fx-xd, fy-yd
		if ex*ex+ey*ey < inverseTolerance*inverseTolerance {
			break
		}

		r2 := xu*xu + yu*yu
		radial := 1 + r2*(rt.k1+r2*(rt.k2+r2*rt.k3))
		// d(radial)/d(r2)
		slope := rt.k1 + r2*(2*rt.k2+3*rt.k3*r2)

		dxdx := radial + 2*xu*xu*slope + 2*rt.p1*yu + 6*rt.p2*xu
		dxdy := 2*xu*yu*slope + 2*rt.p1*xu + 2*rt.p2*yu
		dydx := dxdy
		dydy := radial + 2*yu*yu*slope + 2*rt.p2*xu + 6*rt.p1*yu

		det := dxdx*dydy - dxdy*dydx
		if det == 0 {
			break
		}
		xu -= (dydy*ex - dxdy*ey) / det
		yu -= (dxdx*ey - dydx*ex) / det
	}
	return xu, yu
}
