package inpaint

import (
	"fmt"
	"image"
	"image/color"
)

// Grid is the alignment the inpainting network requires on both axes.
const Grid = 8

// Request is the JSON body posted to the service.
type Request struct {
	Image [][][3]uint8 `json:"image"` // rows of RGB triples
	Mask  [][]int      `json:"mask"`  // rows of 0/1
}

// Response is the JSON body returned by the service.
type Response struct {
	Result [][][3]uint8 `json:"result"`
}

// GridAligned returns the largest rectangle anchored at the origin whose
// sides are multiples of grid.
func GridAligned(r image.Rectangle, grid int) image.Rectangle {
	w := r.Dx() / grid * grid
	h := r.Dy() / grid * grid
	return image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Min.Y+h)
}

// EncodeImage converts the r sub-rectangle of img into nested RGB rows.
func EncodeImage(img image.Image, r image.Rectangle) [][][3]uint8 {
	rows := make([][][3]uint8, r.Dy())
	for y := range rows {
		rows[y] = make([][3]uint8, r.Dx())
		for x := range rows[y] {
			c := color.RGBAModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.RGBA)
			rows[y][x] = [3]uint8{c.R, c.G, c.B}
		}
	}
	return rows
}

// EncodeMask converts the r sub-rectangle of a mask into 0/1 rows.
func EncodeMask(mask *image.Alpha, r image.Rectangle) [][]int {
	rows := make([][]int, r.Dy())
	for y := range rows {
		rows[y] = make([]int, r.Dx())
		for x := range rows[y] {
			if mask.AlphaAt(r.Min.X+x, r.Min.Y+y).A != 0 {
				rows[y][x] = 1
			}
		}
	}
	return rows
}

// DecodeImage converts nested RGB rows back into an opaque image. Ragged rows
// are rejected.
func DecodeImage(rows [][][3]uint8) (*image.RGBA, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	w := len(rows[0])
	out := image.NewRGBA(image.Rect(0, 0, w, len(rows)))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d pixels, want %d", y, len(row), w)
		}
		for x, px := range row {
			out.SetRGBA(x, y, color.RGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return out, nil
}
