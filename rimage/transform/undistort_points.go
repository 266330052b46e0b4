package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultUndistortIterations is the number of fixed point iterations used when
// TermCriteria does not specify any.
const DefaultUndistortIterations = 5

// TermCriteria bounds the iterative point undistortion. A zero Epsilon means only
// MaxIterations is used. Epsilon is a reprojection error in source pixels.
type TermCriteria struct {
	MaxIterations int
	Epsilon       float64
}

// DefaultTermCriteria returns the criteria used when none are given.
func DefaultTermCriteria() TermCriteria {
	return TermCriteria{MaxIterations: DefaultUndistortIterations}
}

func (tc TermCriteria) iterations() int {
	if tc.MaxIterations <= 0 {
		return DefaultUndistortIterations
	}
	return tc.MaxIterations
}

// projection is a 3x3 homogeneous transform flattened row-major.
type projection [9]float64

func (p *projection) apply(x, y float64) (float64, float64) {
	u := p[0]*x + p[1]*y + p[2]
	v := p[3]*x + p[4]*y + p[5]
	w := p[6]*x + p[7]*y + p[8]
	if w == 0 {
		return math.NaN(), math.NaN()
	}
	return u / w, v / w
}

func projectionFrom(m mat.Matrix) *projection {
	var p projection
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p[i*3+j] = m.At(i, j)
		}
	}
	return &p
}

func (p *projection) dense() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64{}, p[:]...))
}

func identityProjection() *projection {
	return &projection{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// checkCameraMatrix returns K and K^-1 as projections.
func checkCameraMatrix(cameraMatrix mat.Matrix) (*projection, *projection, error) {
	if cameraMatrix == nil {
		return nil, nil, NewNoIntrinsicsError("camera matrix is nil")
	}
	if r, c := cameraMatrix.Dims(); r != 3 || c != 3 {
		return nil, nil, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	if mat.Det(cameraMatrix) == 0 {
		return nil, nil, errors.New("camera matrix is singular")
	}
	var inv mat.Dense
	if err := inv.Inverse(cameraMatrix); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, nil, errors.Wrap(err, "camera matrix is singular")
		}
	}
	return projectionFrom(cameraMatrix), projectionFrom(&inv), nil
}

// UndistortPoints maps distorted pixel coordinates to ideal ones. The points are
// normalized through K^-1, undistorted iteratively, rotated by rectification (nil
// is identity) and projected through the first three columns of newProjection (nil
// leaves them in normalized coordinates).
func UndistortPoints(
	pts []r2.Point,
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
	rectification, newProjection mat.Matrix,
	criteria TermCriteria,
) ([]r2.Point, error) {
	k, kInv, err := checkCameraMatrix(cameraMatrix)
	if err != nil {
		return nil, err
	}
	if err := coeffs.CheckValid(); err != nil {
		return nil, err
	}

	out := identityProjection()
	if rectification != nil {
		if r, c := rectification.Dims(); r != 3 || c != 3 {
			return nil, errors.Errorf("rectification matrix must be 3x3, got %dx%d", r, c)
		}
		out = projectionFrom(rectification)
	}
	if newProjection != nil {
		r, c := newProjection.Dims()
		if r != 3 || (c != 3 && c != 4) {
			return nil, errors.Errorf("projection matrix must be 3x3 or 3x4, got %dx%d", r, c)
		}
		var pr mat.Dense
		pr.Mul(projectionFrom(newProjection).dense(), out.dense())
		out = projectionFrom(&pr)
	}

	rt := coeffs.expand()
	iterations := criteria.iterations()
	result := make([]r2.Point, len(pts))
	for i, pt := range pts {
		xd, yd := kInv.apply(pt.X, pt.Y)
		var accept func(x, y float64) bool
		if criteria.Epsilon > 0 {
			accept = func(x, y float64) bool {
				dx, dy := rt.distort(x, y)
				u, v := k.apply(dx, dy)
				return math.Hypot(u-pt.X, v-pt.Y) < criteria.Epsilon
			}
		}
		x, y := rt.undistort(xd, yd, iterations, accept)
		u, v := out.apply(x, y)
		result[i] = r2.Point{X: u, Y: v}
	}
	return result, nil
}

// DistortPoints maps ideal pixel coordinates to where the lens images them.
func DistortPoints(pts []r2.Point, cameraMatrix mat.Matrix, coeffs DistortionCoefficients) ([]r2.Point, error) {
	k, kInv, err := checkCameraMatrix(cameraMatrix)
	if err != nil {
		return nil, err
	}
	if err := coeffs.CheckValid(); err != nil {
		return nil, err
	}
	rt := coeffs.expand()
	result := make([]r2.Point, len(pts))
	for i, pt := range pts {
		x, y := kInv.apply(pt.X, pt.Y)
		x, y = rt.distort(x, y)
		u, v := k.apply(x, y)
		result[i] = r2.Point{X: u, Y: v}
	}
	return result, nil
}

// LensModel computes where pixels move under a lens distortion.
type LensModel interface {
	UndistortPoints(pts []r2.Point, cameraMatrix mat.Matrix, coeffs DistortionCoefficients) ([]r2.Point, error)
	DistortPoints(pts []r2.Point, cameraMatrix mat.Matrix, coeffs DistortionCoefficients) ([]r2.Point, error)
}

// NumericLensModel is the default LensModel. Undistorted points are reprojected
// through the same camera matrix with no rectification.
type NumericLensModel struct {
	Criteria TermCriteria
}

// UndistortPoints undistorts pixel coordinates and reprojects them through cameraMatrix.
func (lm NumericLensModel) UndistortPoints(
	pts []r2.Point,
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
) ([]r2.Point, error) {
	return UndistortPoints(pts, cameraMatrix, coeffs, nil, cameraMatrix, lm.Criteria)
}

// DistortPoints applies the forward model to pixel coordinates.
func (lm NumericLensModel) DistortPoints(
	pts []r2.Point,
	cameraMatrix mat.Matrix,
	coeffs DistortionCoefficients,
) ([]r2.Point, error) {
	return DistortPoints(pts, cameraMatrix, coeffs)
}
