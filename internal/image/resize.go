package image

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"scenegen/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// Interpolation selects the resampling kernel used when resizing regions.
type Interpolation int

const (
	InterpolationNearest Interpolation = iota
	InterpolationApproxBiLinear
	InterpolationBiLinear
	InterpolationCatmullRom
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationNearest:
		return "nearest"
	case InterpolationApproxBiLinear:
		return "approx-bilinear"
	case InterpolationBiLinear:
		return "bilinear"
	case InterpolationCatmullRom:
		return "catmull-rom"
	default:
		return "unknown"
	}
}

// ParseInterpolation parses the names produced by String.
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "nearest-neighbor":
		return InterpolationNearest, nil
	case "", "approx-bilinear":
		return InterpolationApproxBiLinear, nil
	case "bilinear":
		return InterpolationBiLinear, nil
	case "catmull-rom", "bicubic":
		return InterpolationCatmullRom, nil
	default:
		return 0, fmt.Errorf("unknown interpolation %q", s)
	}
}

func (i Interpolation) scaler() xdraw.Scaler {
	switch i {
	case InterpolationNearest:
		return xdraw.NearestNeighbor
	case InterpolationBiLinear:
		return xdraw.BiLinear
	case InterpolationCatmullRom:
		return xdraw.CatmullRom
	default:
		return xdraw.ApproxBiLinear
	}
}

// ToRGBA returns a copy of src as *image.RGBA with its origin at (0,0).
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), src, b.Min, xdraw.Src)
	return out
}

// Crop copies the r sub-rectangle of src into a fresh image with origin (0,0).
// r is in src's coordinate space.
func Crop(src image.Image, r image.Rectangle) (*image.RGBA, error) {
	if !r.In(src.Bounds()) || r.Empty() {
		return nil, fmt.Errorf("crop %v of %v: %w", r, src.Bounds(), ErrOutOfBounds)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(out, out.Bounds(), src, r.Min, xdraw.Src)
	return out, nil
}

// CropAlpha is Crop for single-channel masks.
func CropAlpha(src *image.Alpha, r image.Rectangle) (*image.Alpha, error) {
	if !r.In(src.Bounds()) || r.Empty() {
		return nil, fmt.Errorf("crop %v of %v: %w", r, src.Bounds(), ErrOutOfBounds)
	}
	out := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(out, out.Bounds(), src, r.Min, xdraw.Src)
	return out, nil
}

// Resize scales src to exactly size. Aspect ratio is not preserved; callers
// that need a uniform scale compute size themselves.
func Resize(src image.Image, size geometry.Size, interp Interpolation) (*image.RGBA, error) {
	if size.Empty() {
		return nil, fmt.Errorf("cannot resize to %s: %w", size, ErrSizeMismatch)
	}
	out := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	interp.scaler().Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return out, nil
}

// ResizeAlpha scales a mask in lockstep with the crop it belongs to.
func ResizeAlpha(src *image.Alpha, size geometry.Size, interp Interpolation) (*image.Alpha, error) {
	if size.Empty() {
		return nil, fmt.Errorf("cannot resize mask to %s: %w", size, ErrSizeMismatch)
	}
	out := image.NewAlpha(image.Rect(0, 0, size.Width, size.Height))
	interp.scaler().Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return out, nil
}

// AlphaChannel extracts the alpha channel of img as a mask with origin (0,0).
func AlphaChannel(img image.Image) *image.Alpha {
	b := img.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			out.SetAlpha(x-b.Min.X, y-b.Min.Y, color.Alpha{A: uint8(a >> 8)})
		}
	}
	return out
}
