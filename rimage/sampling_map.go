package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/lensdistort/utils"
)

// SamplingMap is a dense backward sampling map. For every destination pixel (x, y) it stores the
// source coordinate to sample, split into two float32 grids the size of the destination.
type SamplingMap struct {
	width, height int
	X, Y          []float32
}

// NewSamplingMap allocates a zeroed map for a width x height destination.
func NewSamplingMap(width, height int) (*SamplingMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid sampling map size (%d, %d)", width, height)
	}
	return &SamplingMap{
		width:  width,
		height: height,
		X:      make([]float32, width*height),
		Y:      make([]float32, width*height),
	}, nil
}

// NewIdentitySamplingMap returns a map where every pixel samples itself.
func NewIdentitySamplingMap(width, height int) (*SamplingMap, error) {
	m, err := NewSamplingMap(width, height)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Set(x, y, float32(x), float32(y))
		}
	}
	return m, nil
}

// Width of the destination.
func (m *SamplingMap) Width() int {
	return m.width
}

// Height of the destination.
func (m *SamplingMap) Height() int {
	return m.height
}

// Size returns the destination size.
func (m *SamplingMap) Size() image.Point {
	return image.Point{m.width, m.height}
}

// Empty reports whether the map has no entries.
func (m *SamplingMap) Empty() bool {
	return m == nil || len(m.X) == 0
}

// At returns the source coordinate for destination pixel (x, y).
func (m *SamplingMap) At(x, y int) (float32, float32) {
	i := RasterIndex(x, y, m.width)
	return m.X[i], m.Y[i]
}

// Set stores the source coordinate for destination pixel (x, y).
func (m *SamplingMap) Set(x, y int, sx, sy float32) {
	i := RasterIndex(x, y, m.width)
	m.X[i] = sx
	m.Y[i] = sy
}

// SamplingMapStats summarizes where a map samples from.
type SamplingMapStats struct {
	MinX, MinY, MaxX, MaxY float64
	// MaxDisplacement is the largest distance between a destination pixel and its source sample.
	MaxDisplacement float64
	// MeanDisplacement is the average of the same distance over all pixels.
	MeanDisplacement float64
	// OutOfBounds counts samples whose base pixel falls outside the given source bounds.
	OutOfBounds int
}

// Stats computes SamplingMapStats against a source of the given size.
func (m *SamplingMap) Stats(source image.Point) SamplingMapStats {
	stats := SamplingMapStats{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	total := 0.
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			fx, fy := m.At(x, y)
			sx, sy := float64(fx), float64(fy)
			stats.MinX = math.Min(stats.MinX, sx)
			stats.MinY = math.Min(stats.MinY, sy)
			stats.MaxX = math.Max(stats.MaxX, sx)
			stats.MaxY = math.Max(stats.MaxY, sy)
			d := math.Hypot(sx-float64(x), sy-float64(y))
			stats.MaxDisplacement = math.Max(stats.MaxDisplacement, d)
			total += d
			if !image.Pt(utils.FloorInt(snapToGrid(sx)), utils.FloorInt(snapToGrid(sy))).In(image.Rectangle{Max: source}) {
				stats.OutOfBounds++
			}
		}
	}
	stats.MeanDisplacement = total / float64(m.width*m.height)
	return stats
}
