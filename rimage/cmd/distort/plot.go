package main

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/lensdistort/rimage"
)

// maxPlotPoints bounds the scatter size for large maps.
const maxPlotPoints = 8192

// plotDisplacement saves a scatter of how far each pixel moves against its distance from center.
// The format follows the file extension.
func plotDisplacement(m *rimage.SamplingMap, center r2.Point, path string) error {
	stride := 1
	if n := m.Width() * m.Height(); n > maxPlotPoints {
		stride = int(math.Ceil(math.Sqrt(float64(n) / maxPlotPoints)))
	}

	pts := make(plotter.XYs, 0, maxPlotPoints)
	for y := 0; y < m.Height(); y += stride {
		for x := 0; x < m.Width(); x += stride {
			sx, sy := m.At(x, y)
			pixel := r2.Point{X: float64(x), Y: float64(y)}
			d := r2.Point{X: float64(sx), Y: float64(sy)}.Sub(pixel).Norm()
			if math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: pixel.Sub(center).Norm(), Y: d})
		}
	}

	p := plot.New()
	p.Title.Text = "sampling map displacement"
	p.X.Label.Text = "distance from principal point (px)"
	p.Y.Label.Text = "displacement (px)"
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "error creating displacement scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(1)
	p.Add(scatter)
	return errors.Wrap(p.Save(6*vg.Inch, 4*vg.Inch, path), "error saving displacement plot")
}
