package rimage

import (
	"context"
	"image/color"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/lensdistort/utils"
)

// Remapper resamples a source mat through a dense sampling map.
type Remapper interface {
	Remap(ctx context.Context, src *Mat, m *SamplingMap, interp Interpolation, border BorderMode) (*Mat, error)
}

// RemapperConfig configures the default remapper.
type RemapperConfig struct {
	// Parallelism is the number of row groups resampled concurrently. <= 0 uses utils.ParallelFactor.
	Parallelism int
	// BorderValue is read for taps outside the source when the border mode is BorderConstant.
	BorderValue color.NRGBA
}

type remapper struct {
	conf RemapperConfig
}

// NewRemapper returns the default Remapper.
func NewRemapper(conf RemapperConfig) Remapper {
	return &remapper{conf}
}

// Remap produces a mat of the map's size with the source's channel count. Destination pixel
// (x, y) is the kernel weighted sum of the source around m.At(x, y).
func (r *remapper) Remap(
	ctx context.Context,
	src *Mat,
	m *SamplingMap,
	interp Interpolation,
	border BorderMode,
) (*Mat, error) {
	if src.Empty() {
		return nil, errors.New("remap source is empty")
	}
	if m.Empty() {
		return nil, errors.New("remap sampling map is empty")
	}
	interp, err := ParseInterpolation(string(interp))
	if err != nil {
		return nil, err
	}
	k, err := interp.kernel()
	if err != nil {
		return nil, err
	}
	if border, err = ParseBorderMode(string(border)); err != nil {
		return nil, err
	}
	dst, err := NewMat(m.Height(), m.Width(), src.Channels())
	if err != nil {
		return nil, err
	}

	borderValue := [MaxChannels]float64{
		float64(r.conf.BorderValue.R),
		float64(r.conf.BorderValue.G),
		float64(r.conf.BorderValue.B),
		float64(r.conf.BorderValue.A),
	}
	if src.Channels() == 1 {
		borderValue[0] = float64(color.GrayModel.Convert(r.conf.BorderValue).(color.Gray).Y)
	}

	err = utils.ParallelForEachRow(ctx, m.Height(), r.conf.Parallelism, func(y int) error {
		s := newRowSampler(src, k, border, borderValue)
		for x := 0; x < m.Width(); x++ {
			sx, sy := m.At(x, y)
			s.sample(float64(sx), float64(sy), interp == InterpolationNearest, dst.Pixel(x, y))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// rowSampler holds the scratch buffers for one goroutine.
type rowSampler struct {
	src         *Mat
	k           kernel
	border      BorderMode
	borderValue [MaxChannels]float64
	wx, wy      []float64
	xs, ys      []int
	acc         [MaxChannels]float64
}

func newRowSampler(src *Mat, k kernel, border BorderMode, borderValue [MaxChannels]float64) *rowSampler {
	return &rowSampler{
		src:         src,
		k:           k,
		border:      border,
		borderValue: borderValue,
		wx:          make([]float64, k.size),
		wy:          make([]float64, k.size),
		xs:          make([]int, k.size),
		ys:          make([]int, k.size),
	}
}

// gridSnap is the distance under which a coordinate is treated as lying on a pixel center.
// It absorbs float noise from camera matrix round trips, e.g. -1e-13 for column 0.
const gridSnap = 1.0 / 1024

func snapToGrid(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < gridSnap {
		return r
	}
	return v
}

// sample writes the interpolated value at (sx, sy) into out. With BorderTransparent out is left
// as is when the base pixel is outside the source. A NaN coordinate has no source sample.
func (s *rowSampler) sample(sx, sy float64, nearest bool, out []float32) {
	width, height := s.src.Cols(), s.src.Rows()
	if math.IsNaN(sx) || math.IsNaN(sy) {
		if s.border == BorderConstant {
			for c := range out {
				out[c] = float32(s.borderValue[c])
			}
		}
		return
	}

	sx, sy = snapToGrid(sx), snapToGrid(sy)
	var baseX, baseY int
	if nearest {
		baseX, baseY = utils.FloorInt(sx+0.5), utils.FloorInt(sy+0.5)
	} else {
		baseX, baseY = utils.FloorInt(sx), utils.FloorInt(sy)
	}
	if s.border == BorderTransparent && (baseX < 0 || baseX >= width || baseY < 0 || baseY >= height) {
		return
	}
	s.k.weights(sx-float64(baseX), s.wx)
	s.k.weights(sy-float64(baseY), s.wy)

	for i := 0; i < s.k.size; i++ {
		s.xs[i] = borderIndex(baseX-s.k.anchor+i, width, s.border)
		s.ys[i] = borderIndex(baseY-s.k.anchor+i, height, s.border)
	}

	channels := s.src.Channels()
	for c := 0; c < channels; c++ {
		s.acc[c] = 0
	}
	for j, row := range s.ys {
		wy := s.wy[j]
		if wy == 0 {
			continue
		}
		for i, col := range s.xs {
			w := wy * s.wx[i]
			if w == 0 {
				continue
			}
			if row < 0 || col < 0 {
				for c := 0; c < channels; c++ {
					s.acc[c] += w * s.borderValue[c]
				}
				continue
			}
			px := s.src.Pixel(col, row)
			for c := 0; c < channels; c++ {
				s.acc[c] += w * float64(px[c])
			}
		}
	}
	for c := 0; c < channels; c++ {
		out[c] = float32(s.acc[c])
	}
}
