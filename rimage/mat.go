package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// MaxChannels is the largest number of interleaved channels a Mat can hold.
const MaxChannels = 4

// RasterIndex returns the row-major index of (x, y) in a grid of the given width. Every flat
// buffer in this package, and every point list built from a grid, is laid out in this order.
func RasterIndex(x, y, width int) int {
	return (y * width) + x
}

// Mat is a dense rows x cols grid of float32 samples with interleaved channels. It is the
// numeric representation images are converted to before being resampled.
type Mat struct {
	rows, cols, channels int
	data                 []float32
}

// NewMat returns a zeroed Mat.
func NewMat(rows, cols, channels int) (*Mat, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Errorf("invalid mat size (%d, %d)", cols, rows)
	}
	if channels < 1 || channels > MaxChannels {
		return nil, errors.Errorf("unsupported channel count %d, expected 1 to %d", channels, MaxChannels)
	}
	return &Mat{
		rows:     rows,
		cols:     cols,
		channels: channels,
		data:     make([]float32, rows*cols*channels),
	}, nil
}

// Rows returns the number of rows.
func (m *Mat) Rows() int {
	return m.rows
}

// Cols returns the number of columns.
func (m *Mat) Cols() int {
	return m.cols
}

// Channels returns the number of interleaved channels.
func (m *Mat) Channels() int {
	return m.channels
}

// Size returns the (cols, rows) of the mat as an image.Point.
func (m *Mat) Size() image.Point {
	return image.Point{m.cols, m.rows}
}

// Empty reports whether the mat has no samples.
func (m *Mat) Empty() bool {
	return m == nil || len(m.data) == 0
}

func (m *Mat) offset(x, y int) int {
	return RasterIndex(x, y, m.cols) * m.channels
}

// At returns channel c of the sample at column x, row y.
func (m *Mat) At(x, y, c int) float32 {
	return m.data[m.offset(x, y)+c]
}

// Set sets channel c of the sample at column x, row y.
func (m *Mat) Set(x, y, c int, v float32) {
	m.data[m.offset(x, y)+c] = v
}

// Pixel returns the channels of the sample at (x, y). The slice aliases the mat.
func (m *Mat) Pixel(x, y int) []float32 {
	off := m.offset(x, y)
	return m.data[off : off+m.channels]
}

// Clone returns a deep copy.
func (m *Mat) Clone() *Mat {
	data := make([]float32, len(m.data))
	copy(data, m.data)
	return &Mat{rows: m.rows, cols: m.cols, channels: m.channels, data: data}
}

// ImageToMat converts any image into a 4 channel (RGBA, non-premultiplied) Mat with samples in
// [0, 255]. The image bounds are translated so the mat starts at (0, 0).
func ImageToMat(img image.Image) (*Mat, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	m, err := NewMat(bounds.Dy(), bounds.Dx(), 4)
	if err != nil {
		return nil, errors.Wrap(err, "cannot convert image to mat")
	}
	for i, v := range nrgba.Pix[:len(m.data)] {
		m.data[i] = float32(v)
	}
	return m, nil
}

// MatToImage converts a Mat back into an image. One channel mats become opaque gray, three
// channel mats opaque color, and four channel mats keep their alpha. Samples are rounded and
// clamped to [0, 255].
func MatToImage(m *Mat) (*image.NRGBA, error) {
	if m.Empty() {
		return nil, errors.New("cannot convert empty mat to image")
	}
	img := image.NewNRGBA(image.Rect(0, 0, m.cols, m.rows))
	for y := 0; y < m.rows; y++ {
		for x := 0; x < m.cols; x++ {
			px := m.Pixel(x, y)
			dst := img.Pix[img.PixOffset(x, y) : img.PixOffset(x, y)+4]
			switch m.channels {
			case 1:
				g := toUint8(px[0])
				dst[0], dst[1], dst[2], dst[3] = g, g, g, 0xff
			case 3:
				dst[0], dst[1], dst[2], dst[3] = toUint8(px[0]), toUint8(px[1]), toUint8(px[2]), 0xff
			case 4:
				dst[0], dst[1], dst[2], dst[3] = toUint8(px[0]), toUint8(px[1]), toUint8(px[2]), toUint8(px[3])
			default:
				return nil, errors.Errorf("cannot convert mat with %d channels to image", m.channels)
			}
		}
	}
	return img, nil
}

func toUint8(v float32) uint8 {
	switch {
	case v != v || v <= 0: // NaN or negative
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
