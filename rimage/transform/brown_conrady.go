package transform

import "github.com/pkg/errors"

// BrownConrady is a struct for some terms of a modified Brown-Conrady model of distortion.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	rk1, rk2, rk3, tp1, tp2, err := fivePadded(inp)
	if err != nil {
		return nil, err
	}
	return &BrownConrady{rk1, rk2, rk3, tp1, tp2}, nil
}

// NewBrownConradyFromCoefficients converts a k1, k2, p1, p2[, k3] vector. Rational
// coefficients (k4..k6) have no Brown-Conrady equivalent and are rejected.
func NewBrownConradyFromCoefficients(coeffs DistortionCoefficients) (*BrownConrady, error) {
	if err := coeffs.CheckValid(); err != nil {
		return nil, err
	}
	if len(coeffs) == 8 && (coeffs[5] != 0 || coeffs[6] != 0 || coeffs[7] != 0) {
		return nil, InvalidDistortionError("rational coefficients k4, k5, k6 cannot be expressed as BrownConrady")
	}
	rt := coeffs.expand()
	return &BrownConrady{rt.k1, rt.k2, rt.k3, rt.p1, rt.p2}, nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Coefficients returns the parameters in k1, k2, p1, p2, k3 order.
func (bc *BrownConrady) Coefficients() DistortionCoefficients {
	if bc == nil {
		return DistortionCoefficients{0, 0, 0, 0, 0}
	}
	return DistortionCoefficients{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

func (bc *BrownConrady) terms() radialTangential {
	return radialTangential{k1: bc.RadialK1, k2: bc.RadialK2, k3: bc.RadialK3, p1: bc.TangentialP1, p2: bc.TangentialP2}
}

// Transform distorts the input points x,y according to a modified Brown-Conrady model as described by OpenCV
// https://docs.opencv.org/3.4/da/d54/group__imgproc__transform.html#ga7dfb72c9cf9780a347fbe3d1c47e5d5a
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	return bc.terms().distort(x, y)
}

func fivePadded(inp []float64) (float64, float64, float64, float64, float64, error) {
	if len(inp) > 5 {
		return 0, 0, 0, 0, 0, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	var p [5]float64
	copy(p[:], inp)
	return p[0], p[1], p[2], p[3], p[4], nil
}
