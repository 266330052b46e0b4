package main

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/lensdistort/rimage"
)

type displacementSummary struct {
	Median            float64 `json:"median"`
	P95               float64 `json:"p95"`
	StandardDeviation float64 `json:"standard_deviation"`
}

type mapReport struct {
	Width        int                     `json:"width"`
	Height       int                     `json:"height"`
	Direction    string                  `json:"direction"`
	Stats        rimage.SamplingMapStats `json:"stats"`
	Displacement displacementSummary     `json:"displacement"`
}

// summarizeDisplacement describes the distribution of per pixel displacements, ignoring
// pixels with no finite sample.
func summarizeDisplacement(m *rimage.SamplingMap) (displacementSummary, error) {
	data := make(stats.Float64Data, 0, m.Width()*m.Height())
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			sx, sy := m.At(x, y)
			d := math.Hypot(float64(sx)-float64(x), float64(sy)-float64(y))
			if !math.IsNaN(d) && !math.IsInf(d, 0) {
				data = append(data, d)
			}
		}
	}
	var summary displacementSummary
	var err error
	if summary.Median, err = data.Median(); err != nil {
		return summary, errors.Wrap(err, "error computing median displacement")
	}
	if summary.P95, err = data.Percentile(95); err != nil {
		return summary, errors.Wrap(err, "error computing displacement percentile")
	}
	if summary.StandardDeviation, err = data.StandardDeviation(); err != nil {
		return summary, errors.Wrap(err, "error computing displacement deviation")
	}
	return summary, nil
}
