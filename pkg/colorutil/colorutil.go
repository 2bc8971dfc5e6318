// Package colorutil provides shared colours and colour maps.
package colorutil

import (
	"image/color"
	"math"
)

// Common colours.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Jet maps t in [0,1] onto the classic blue-cyan-yellow-red ramp.
// Values outside the range are clamped.
func Jet(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{
		R: channel(1.5 - math.Abs(4*t-3)),
		G: channel(1.5 - math.Abs(4*t-2)),
		B: channel(1.5 - math.Abs(4*t-1)),
		A: 255,
	}
}

// JetLevels maps a class index onto n evenly spaced Jet colours, the way a
// discrete colour map with n entries would. Indices past the end take the
// last colour.
func JetLevels(index, n int) color.RGBA {
	if n <= 1 || index <= 0 {
		return Jet(0)
	}
	if index >= n-1 {
		return Jet(1)
	}
	return Jet(float64(index) / float64(n-1))
}

func channel(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(math.Round(v * 255))
}
