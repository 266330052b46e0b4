package transform

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/lensdistort/rimage"
)

// rasterOrder enumerates the pixels of a grid. Building the point list and
// scattering the corrected points must walk the grid with the same order.
type rasterOrder interface {
	Len() int
	Coord(i int) image.Point
}

// rowMajor visits y in the outer loop and x in the inner loop.
type rowMajor struct {
	size image.Point
}

func (o rowMajor) Len() int {
	return o.size.X * o.size.Y
}

func (o rowMajor) Coord(i int) image.Point {
	return image.Pt(i%o.size.X, i/o.size.X)
}

// buildPointList returns the integer pixel coordinates of every grid cell in order.
func buildPointList(order rasterOrder) []r2.Point {
	pts := make([]r2.Point, order.Len())
	for i := range pts {
		c := order.Coord(i)
		pts[i] = r2.Point{X: float64(c.X), Y: float64(c.Y)}
	}
	return pts
}

// scatterPoints writes pts back into m following order.
func scatterPoints(order rasterOrder, pts []r2.Point, m *rimage.SamplingMap) error {
	if len(pts) != order.Len() {
		return errors.Errorf("got %d corrected points for a grid of %d", len(pts), order.Len())
	}
	for i, pt := range pts {
		c := order.Coord(i)
		m.Set(c.X, c.Y, float32(pt.X), float32(pt.Y))
	}
	return nil
}
