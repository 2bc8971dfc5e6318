package synth

import (
	"fmt"
	"image"

	sgimage "scenegen/internal/image"
	"scenegen/internal/region"
	"scenegen/pkg/geometry"
)

// ScaleRange selects the lower bound of the sampled scale percentage.
type ScaleRange int

const (
	// ScaleRangeWide samples from 1% up to the maximum.
	ScaleRangeWide ScaleRange = iota
	// ScaleRangeUpperHalf samples from half the maximum up to the maximum.
	ScaleRangeUpperHalf
)

func (s ScaleRange) String() string {
	switch s {
	case ScaleRangeWide:
		return "wide"
	case ScaleRangeUpperHalf:
		return "upper-half"
	default:
		return "unknown"
	}
}

// ParseScaleRange parses the names produced by String.
func ParseScaleRange(s string) (ScaleRange, error) {
	switch s {
	case "", "wide":
		return ScaleRangeWide, nil
	case "upper-half", "upperhalf":
		return ScaleRangeUpperHalf, nil
	default:
		return 0, fmt.Errorf("unknown scale range %q", s)
	}
}

// PlaceParams controls random placement.
type PlaceParams struct {
	Range ScaleRange
	// MinScalePercent, when positive, replaces the floor implied by Range.
	MinScalePercent int
	Interpolation   sgimage.Interpolation
}

// DefaultPlaceParams returns the wide scale range with bilinear resizing.
func DefaultPlaceParams() PlaceParams {
	return PlaceParams{
		Range:         ScaleRangeWide,
		Interpolation: sgimage.InterpolationApproxBiLinear,
	}
}

// WithScaleRange returns a copy of params using r.
func (p PlaceParams) WithScaleRange(r ScaleRange) PlaceParams {
	p.Range = r
	return p
}

// WithMinScalePercent returns a copy of params with an explicit percent floor.
func (p PlaceParams) WithMinScalePercent(percent int) PlaceParams {
	p.MinScalePercent = percent
	return p
}

// Placer drops content at a random size and position.
type Placer struct {
	Rand   Rand
	Params PlaceParams
}

// NewPlacer creates a Placer drawing from rng.
func NewPlacer(rng Rand, params PlaceParams) *Placer {
	return &Placer{Rand: rng, Params: params}
}

// Placed is the outcome of a placement.
type Placed struct {
	Image     *image.RGBA
	Placement geometry.Placement
	Scale     float64
}

// MaxScale returns the largest factor by which footprint can grow and still
// fit dest along its binding axis. The binding axis is the one where the
// footprint covers the larger fraction of dest.
func MaxScale(dest, footprint geometry.Size) float64 {
	if float64(footprint.Width)/float64(dest.Width) > float64(footprint.Height)/float64(dest.Height) {
		return float64(dest.Width) / float64(footprint.Width)
	}
	return float64(dest.Height) / float64(footprint.Height)
}

// scalePercentRange returns the inclusive percent bounds to sample from.
func (p PlaceParams) scalePercentRange(maxScale float64) (int, int, error) {
	hi := int(maxScale * 100)
	if hi <= 0 {
		return 0, 0, fmt.Errorf("max scale %.4f: %w", maxScale, ErrDegenerateScale)
	}
	lo := 1
	if p.Range == ScaleRangeUpperHalf {
		lo = hi / 2
	}
	if p.MinScalePercent > 0 {
		lo = p.MinScalePercent
	}
	if lo < 1 {
		lo = 1
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi, nil
}

// Place pastes patch into a copy of dest at a random scale and position.
//
// The scale is derived from src's footprint rather than the patch's own
// size: the patch is resized to footprint*scale. patchAlpha, when given,
// must match patch and makes the paste masked. The result always lies fully
// inside dest.
func (p *Placer) Place(dest image.Image, src region.Region, patch image.Image, patchAlpha *image.Alpha) (*Placed, error) {
	destSize := geometry.SizeOf(dest.Bounds())
	if destSize.Empty() {
		return nil, fmt.Errorf("destination %s: %w", destSize, ErrDegenerateScale)
	}

	box, err := src.Bounds()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source region: %w", err)
	}
	footprint := box.Size()

	maxScale := MaxScale(destSize, footprint)
	lo, hi, err := p.Params.scalePercentRange(maxScale)
	if err != nil {
		return nil, err
	}
	scale := float64(intRange(p.Rand, lo, hi)) / 100

	size := geometry.NewSize(
		clamp(int(float64(footprint.Width)*scale), 1, destSize.Width),
		clamp(int(float64(footprint.Height)*scale), 1, destSize.Height),
	)

	resized, err := sgimage.Resize(patch, size, p.Params.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("failed to resize patch: %w", err)
	}
	var alpha *image.Alpha
	if patchAlpha != nil {
		alpha, err = sgimage.ResizeAlpha(patchAlpha, size, p.Params.Interpolation)
		if err != nil {
			return nil, fmt.Errorf("failed to resize patch mask: %w", err)
		}
	}

	placement := geometry.Placement{
		X:      intRange(p.Rand, 0, destSize.Width-size.Width),
		Y:      intRange(p.Rand, 0, destSize.Height-size.Height),
		Width:  size.Width,
		Height: size.Height,
	}

	out, err := sgimage.Composite(dest, resized, placement.Rect(), alpha)
	if err != nil {
		return nil, fmt.Errorf("failed to composite placement: %w", err)
	}
	return &Placed{Image: out, Placement: placement, Scale: scale}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
