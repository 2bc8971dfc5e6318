// Package outline renders segmentation masks as colour-coded maps with
// traced object outlines.
package outline

import (
	"fmt"
	"image"
	"image/color"

	"scenegen/internal/region"
	"scenegen/pkg/colorutil"
	"scenegen/pkg/geometry"

	"gocv.io/x/gocv"
)

// Layer is one object mask with the class index used to colour it.
type Layer struct {
	Mask  *region.Mask
	Class int
}

// Options controls rendering.
type Options struct {
	Levels    int        // number of discrete colours in the map
	Thickness int        // outline thickness in pixels
	Outline   color.RGBA // outline colour
}

// DefaultOptions returns a three-level jet map with 1px white outlines.
func DefaultOptions() Options {
	return Options{Levels: 3, Thickness: 1, Outline: colorutil.White}
}

// WithLevels returns a copy of opts using n colour levels.
func (o Options) WithLevels(n int) Options {
	o.Levels = n
	return o
}

// ClassMap flattens layers into a per-pixel class index. Later layers win
// where they overlap; uncovered pixels are 0.
func ClassMap(size geometry.Size, layers []Layer) ([]int, error) {
	out := make([]int, size.Area())
	for i, l := range layers {
		if l.Mask.Size() != size {
			return nil, fmt.Errorf("layer %d is %s, want %s: %w", i, l.Mask.Size(), size, region.ErrOutOfBounds)
		}
		for y := 0; y < size.Height; y++ {
			for x := 0; x < size.Width; x++ {
				if l.Mask.At(x, y) {
					out[y*size.Width+x] = l.Class
				}
			}
		}
	}
	return out, nil
}

// ColorMap paints a class map with JetLevels colours.
func ColorMap(size geometry.Size, classes []int, levels int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			out.SetRGBA(x, y, colorutil.JetLevels(classes[y*size.Width+x], levels))
		}
	}
	return out
}

// Contours traces the outer boundary of every blob in mask and returns the
// boundary pixels as a mask.
func Contours(mask *region.Mask, thickness int) *region.Mask {
	size := mask.Size()
	out := region.NewMask(size.Width, size.Height)
	if size.Empty() {
		return out
	}

	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Height, size.Width, gocv.MatTypeCV8U)
	defer src.Close()
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			if mask.At(x, y) {
				src.SetUCharAt(y, x, 255)
			}
		}
	}

	contours := gocv.FindContours(src, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	drawn := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Height, size.Width, gocv.MatTypeCV8U)
	defer drawn.Close()
	for i := 0; i < contours.Size(); i++ {
		gocv.DrawContours(&drawn, contours, i, colorutil.White, thickness)
	}

	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			if drawn.GetUCharAt(y, x) != 0 {
				out.Set(x, y, true)
			}
		}
	}
	return out
}

// Render produces the colour map of layers with each layer's outline drawn
// on top.
func Render(size geometry.Size, layers []Layer, opts Options) (*image.RGBA, error) {
	classes, err := ClassMap(size, layers)
	if err != nil {
		return nil, err
	}
	out := ColorMap(size, classes, opts.Levels)
	if opts.Thickness <= 0 {
		return out, nil
	}

	for _, l := range layers {
		edge := Contours(l.Mask, opts.Thickness)
		for y := 0; y < size.Height; y++ {
			for x := 0; x < size.Width; x++ {
				if edge.At(x, y) {
					out.SetRGBA(x, y, opts.Outline)
				}
			}
		}
	}
	return out, nil
}
