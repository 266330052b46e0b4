package utils

import "math"

// AbsInt returns the absolute value of the given int.
func AbsInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FloorInt returns the largest integer not greater than v. Values beyond the int range saturate.
func FloorInt(v float64) int {
	f := math.Floor(v)
	switch {
	case math.IsNaN(f):
		return math.MinInt32
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
