package image

import (
	"fmt"
	"image"
	"image/color"

	"scenegen/pkg/geometry"

	xdraw "golang.org/x/image/draw"
)

// Composite returns a copy of dst with patch pasted into the at box.
//
// When alpha is nil the paste is a fully opaque rectangle. Otherwise every
// pixel is blended as patch*a + dst*(1-a) with a = alpha/255, so only
// mask-covered pixels change. patch (and alpha) must already be at's size.
func Composite(dst, patch image.Image, at geometry.RectInt, alpha *image.Alpha) (*image.RGBA, error) {
	if at.Empty() || !at.Within(geometry.SizeOf(dst.Bounds())) {
		return nil, fmt.Errorf("composite box %s in %s: %w", at, geometry.SizeOf(dst.Bounds()), ErrOutOfBounds)
	}
	if ps := geometry.SizeOf(patch.Bounds()); ps != at.Size() {
		return nil, fmt.Errorf("patch %s, box %s: %w", ps, at.Size(), ErrSizeMismatch)
	}
	if alpha != nil {
		if as := geometry.SizeOf(alpha.Bounds()); as != at.Size() {
			return nil, fmt.Errorf("mask %s, box %s: %w", as, at.Size(), ErrSizeMismatch)
		}
	}

	out := ToRGBA(dst)
	target := at.ImageRect()

	if alpha == nil {
		xdraw.Draw(out, target, patch, patch.Bounds().Min, xdraw.Src)
		return out, nil
	}

	// Blend from straight (non-premultiplied) patch colours so a patch
	// carrying its own transparency is not attenuated twice.
	src := image.NewNRGBA(image.Rect(0, 0, at.Width, at.Height))
	xdraw.Draw(src, src.Bounds(), patch, patch.Bounds().Min, xdraw.Src)
	ab := alpha.Bounds()

	for y := 0; y < at.Height; y++ {
		for x := 0; x < at.Width; x++ {
			a := uint32(alpha.AlphaAt(ab.Min.X+x, ab.Min.Y+y).A)
			if a == 0 {
				continue
			}
			s := src.NRGBAAt(x, y)
			dx, dy := at.X+x, at.Y+y
			if a == 255 {
				out.SetRGBA(dx, dy, color.RGBA{R: s.R, G: s.G, B: s.B, A: 255})
				continue
			}
			d := out.RGBAAt(dx, dy)
			out.SetRGBA(dx, dy, color.RGBA{
				R: blend(s.R, d.R, a),
				G: blend(s.G, d.G, a),
				B: blend(s.B, d.B, a),
				A: blend(255, d.A, a),
			})
		}
	}
	return out, nil
}

// blend mixes two 8-bit channel values with weight a (0-255) on src.
func blend(src, dst uint8, a uint32) uint8 {
	v := (uint32(src)*a + uint32(dst)*(255-a) + 127) / 255
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Fill returns a copy of dst with the at box set to c. When alpha is given
// only pixels with non-zero alpha are painted.
func Fill(dst image.Image, at geometry.RectInt, alpha *image.Alpha, c color.RGBA) (*image.RGBA, error) {
	if at.Empty() || !at.Within(geometry.SizeOf(dst.Bounds())) {
		return nil, fmt.Errorf("fill box %s in %s: %w", at, geometry.SizeOf(dst.Bounds()), ErrOutOfBounds)
	}
	if alpha != nil {
		if as := geometry.SizeOf(alpha.Bounds()); as != at.Size() {
			return nil, fmt.Errorf("mask %s, box %s: %w", as, at.Size(), ErrSizeMismatch)
		}
	}

	out := ToRGBA(dst)
	if alpha == nil {
		xdraw.Draw(out, at.ImageRect(), &image.Uniform{C: c}, image.Point{}, xdraw.Src)
		return out, nil
	}

	ab := alpha.Bounds()
	for y := 0; y < at.Height; y++ {
		for x := 0; x < at.Width; x++ {
			if alpha.AlphaAt(ab.Min.X+x, ab.Min.Y+y).A != 0 {
				out.SetRGBA(at.X+x, at.Y+y, c)
			}
		}
	}
	return out, nil
}

// ConcatHorizontal places images side by side, top aligned. The canvas is
// as wide as the sum of widths and as tall as the tallest image; uncovered
// canvas stays black.
func ConcatHorizontal(images ...image.Image) *image.RGBA {
	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(out, out.Bounds(), &image.Uniform{C: color.RGBA{A: 255}}, image.Point{}, xdraw.Src)

	x := 0
	for _, img := range images {
		b := img.Bounds()
		xdraw.Draw(out, image.Rect(x, 0, x+b.Dx(), b.Dy()), img, b.Min, xdraw.Src)
		x += b.Dx()
	}
	return out
}
