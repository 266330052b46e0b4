package rimage

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
)

// NewNRGBAFromHex parses "#rrggbb" (opaque) or "#rrggbbaa".
func NewNRGBAFromHex(hex string) (color.NRGBA, error) {
	var r, g, b, a uint8
	switch len(hex) {
	case 7:
		n, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
		if n != 3 || err != nil {
			return color.NRGBA{}, errors.Wrapf(parseErr(err), "couldn't parse hex (%s) n: %d", hex, n)
		}
		a = 0xff
	case 9:
		n, err := fmt.Sscanf(hex, "#%02x%02x%02x%02x", &r, &g, &b, &a)
		if n != 4 || err != nil {
			return color.NRGBA{}, errors.Wrapf(parseErr(err), "couldn't parse hex (%s) n: %d", hex, n)
		}
	default:
		return color.NRGBA{}, errors.Errorf("couldn't parse hex (%s), expected #rrggbb or #rrggbbaa", hex)
	}
	return color.NRGBA{r, g, b, a}, nil
}

// parseErr covers a short Sscanf match that reported no error.
func parseErr(err error) error {
	if err == nil {
		return errors.New("incomplete match")
	}
	return err
}
