package rimage

import "github.com/pkg/errors"

// BorderMode decides what a resampler reads for taps that fall outside the source.
type BorderMode string

const (
	// BorderTransparent leaves destination pixels whose sample lies outside the source untouched
	// (zero, so alpha 0 for RGBA mats). Taps of an in-bounds sample that spill over the edge are
	// reflected like BorderReflect101.
	BorderTransparent = BorderMode("transparent")
	// BorderConstant reads a fixed border value outside the source.
	BorderConstant = BorderMode("constant")
	// BorderReplicate repeats the edge pixel: aaaaaa|abcdefgh|hhhhhhh.
	BorderReplicate = BorderMode("replicate")
	// BorderReflect mirrors including the edge pixel: fedcba|abcdefgh|hgfedcb.
	BorderReflect = BorderMode("reflect")
	// BorderReflect101 mirrors excluding the edge pixel: gfedcb|abcdefgh|gfedcba.
	BorderReflect101 = BorderMode("reflect101")
	// BorderWrap tiles the source: cdefgh|abcdefgh|abcdefg.
	BorderWrap = BorderMode("wrap")
)

// ParseBorderMode validates a border mode name. The empty string selects BorderTransparent.
func ParseBorderMode(name string) (BorderMode, error) {
	mode := BorderMode(name)
	switch mode {
	case "":
		return BorderTransparent, nil
	case BorderTransparent, BorderConstant, BorderReplicate, BorderReflect, BorderReflect101, BorderWrap:
		return mode, nil
	default:
		return "", errors.Errorf("do not know how to handle border mode %q", name)
	}
}

// borderIndex maps a possibly out of range coordinate p onto [0, length). It returns -1 when
// the mode reads the constant border value instead.
func borderIndex(p, length int, mode BorderMode) int {
	if p >= 0 && p < length {
		return p
	}
	switch mode {
	case BorderReplicate:
		if p < 0 {
			return 0
		}
		return length - 1
	case BorderReflect, BorderReflect101, BorderTransparent:
		if length == 1 {
			return 0
		}
		delta := 0
		if mode != BorderReflect {
			delta = 1
		}
		for p < 0 || p >= length {
			if p < 0 {
				p = -p - 1 + delta
			} else {
				p = length - 1 - (p - length) - delta
			}
		}
		return p
	case BorderWrap:
		p %= length
		if p < 0 {
			p += length
		}
		return p
	case BorderConstant:
		return -1
	default:
		return -1
	}
}
