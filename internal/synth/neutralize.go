package synth

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	sgimage "scenegen/internal/image"
	"scenegen/internal/inpaint"
	"scenegen/internal/region"
	"scenegen/pkg/geometry"
)

// BackgroundMode selects what happens to the space an object leaves behind.
type BackgroundMode int

const (
	BackgroundKeep BackgroundMode = iota
	BackgroundBlack
	BackgroundInpaint
)

func (m BackgroundMode) String() string {
	switch m {
	case BackgroundKeep:
		return "none"
	case BackgroundBlack:
		return "black"
	case BackgroundInpaint:
		return "inpaint"
	default:
		return "unknown"
	}
}

// ParseBackgroundMode parses the names produced by String.
func ParseBackgroundMode(s string) (BackgroundMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "keep":
		return BackgroundKeep, nil
	case "black":
		return BackgroundBlack, nil
	case "inpaint":
		return BackgroundInpaint, nil
	default:
		return 0, fmt.Errorf("unknown background mode %q", s)
	}
}

// Neutralizer removes an object from its scene before a negative is built.
type Neutralizer struct {
	Mode      BackgroundMode
	Inpainter inpaint.Inpainter // required for BackgroundInpaint
}

// Neutralize returns a copy of img with r cleared according to Mode. Black
// and inpaint clear the whole box for Box regions and only the covered
// pixels for Mask regions.
func (n Neutralizer) Neutralize(ctx context.Context, img image.Image, r region.Region) (*image.RGBA, error) {
	if n.Mode == BackgroundKeep {
		return sgimage.ToRGBA(img), nil
	}

	box, err := r.Bounds()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve region: %w", err)
	}
	var alpha *image.Alpha
	if m := r.AsMask(); m != nil {
		if size := geometry.SizeOf(img.Bounds()); m.Size() != size {
			return nil, fmt.Errorf("mask %s on image %s: %w", m.Size(), size, region.ErrOutOfBounds)
		}
		alpha = m.Alpha(box)
	}

	black, err := sgimage.Fill(img, box, alpha, color.RGBA{A: 255})
	if err != nil {
		return nil, fmt.Errorf("failed to clear region: %w", err)
	}
	if n.Mode == BackgroundBlack {
		return black, nil
	}
	if n.Mode != BackgroundInpaint {
		return nil, fmt.Errorf("unsupported background mode %d", n.Mode)
	}
	if n.Inpainter == nil {
		return nil, fmt.Errorf("no inpainter configured: %w", ErrInpaintService)
	}

	// The service works on a multiple-of-grid image; anything past the
	// aligned edge stays black.
	aligned := inpaint.GridAligned(black.Bounds(), inpaint.Grid)
	if aligned.Empty() {
		return nil, fmt.Errorf("image %v smaller than inpainting grid: %w", black.Bounds().Size(), ErrInpaintService)
	}

	full := image.NewAlpha(black.Bounds())
	if alpha != nil {
		pasteAlpha(full, box, alpha)
	} else {
		for y := box.Y; y < box.Bottom(); y++ {
			for x := box.X; x < box.Right(); x++ {
				full.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}

	send, err := sgimage.Crop(black, aligned)
	if err != nil {
		return nil, err
	}
	sendMask, err := sgimage.CropAlpha(full, aligned)
	if err != nil {
		return nil, err
	}

	filled, err := n.Inpainter.Inpaint(ctx, send, sendMask)
	if err != nil {
		return nil, fmt.Errorf("failed to inpaint region: %w", err)
	}
	if filled.Bounds().Size() != aligned.Size() {
		return nil, fmt.Errorf("inpainted %v, sent %v: %w", filled.Bounds().Size(), aligned.Size(), ErrInpaintService)
	}

	return sgimage.Composite(black, filled, geometry.RectFromImage(aligned), nil)
}

// pasteAlpha copies a box-local mask into an image-sized one.
func pasteAlpha(dst *image.Alpha, box geometry.RectInt, src *image.Alpha) {
	for y := 0; y < box.Height; y++ {
		for x := 0; x < box.Width; x++ {
			dst.SetAlpha(box.X+x, box.Y+y, src.AlphaAt(x, y))
		}
	}
}
