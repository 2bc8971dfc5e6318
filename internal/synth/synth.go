// Package synth builds plausible and implausible scene variants from regions:
// swapping content between two images, dropping content at a random size and
// position, clearing the space an object occupied, and pairing results for
// side-by-side comparison.
package synth

import (
	"errors"
	"image"

	"scenegen/internal/inpaint"
)

var (
	// ErrDegenerateScale is returned when the destination is too small to
	// fit the source footprint at 1%.
	ErrDegenerateScale = errors.New("no valid scale factor for placement")

	// ErrInpaintService is the inpainting failure sentinel.
	ErrInpaintService = inpaint.ErrInpaintService
)

// Rand is the randomness the package consumes. *math/rand.Rand satisfies it.
type Rand interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

// intRange returns a uniform integer in [lo, hi].
func intRange(rng Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// Sample is one generated image with its ground-truth label.
type Sample struct {
	Image    *image.RGBA
	Correct  bool
	SourceID string
}
