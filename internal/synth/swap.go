package synth

import (
	"fmt"
	"image"

	sgimage "scenegen/internal/image"
	"scenegen/internal/region"
)

// SwapParams controls content swapping.
type SwapParams struct {
	Interpolation sgimage.Interpolation
}

// DefaultSwapParams returns bilinear swapping.
func DefaultSwapParams() SwapParams {
	return SwapParams{Interpolation: sgimage.InterpolationApproxBiLinear}
}

// WithInterpolation returns a copy of params using interp.
func (p SwapParams) WithInterpolation(interp sgimage.Interpolation) SwapParams {
	p.Interpolation = interp
	return p
}

// Swap exchanges the content of r1 in img1 with the content of r2 in img2.
//
// Each crop is stretched (non-uniformly) to the other region's bounding box
// and composited there. Mask regions bring their own mask along, so only the
// incoming object's pixels land on the other image. Both results keep the
// dimensions of their source image; the inputs are not modified.
func Swap(img1 image.Image, r1 region.Region, img2 image.Image, r2 region.Region, params SwapParams) (*image.RGBA, *image.RGBA, error) {
	c1, err := region.Extract(img1, r1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract first region: %w", err)
	}
	c2, err := region.Extract(img2, r2)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract second region: %w", err)
	}

	edited1, err := pasteInto(img1, c1, c2, params.Interpolation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to paste into first image: %w", err)
	}
	edited2, err := pasteInto(img2, c2, c1, params.Interpolation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to paste into second image: %w", err)
	}
	return edited1, edited2, nil
}

// pasteInto resizes incoming to target's footprint and composites it there.
func pasteInto(dst image.Image, target, incoming *region.Crop, interp sgimage.Interpolation) (*image.RGBA, error) {
	patch, err := sgimage.Resize(incoming.Image, target.Size, interp)
	if err != nil {
		return nil, err
	}

	var alpha *image.Alpha
	if incoming.Masked() {
		alpha, err = sgimage.ResizeAlpha(incoming.Alpha, target.Size, interp)
		if err != nil {
			return nil, err
		}
	}
	return sgimage.Composite(dst, patch, target.Bounds, alpha)
}
