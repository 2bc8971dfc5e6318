// Package region describes the part of an image that a transform operates on
// and extracts it as a standalone crop.
package region

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	sgimage "scenegen/internal/image"
	"scenegen/pkg/geometry"
)

var (
	// ErrEmptyRegion is returned for masks with no set pixels and boxes with no area.
	ErrEmptyRegion = errors.New("region is empty")

	// ErrOutOfBounds is returned when a region does not fit the image it is applied to.
	ErrOutOfBounds = sgimage.ErrOutOfBounds
)

// Region is either an axis-aligned Box or a per-pixel Mask.
type Region interface {
	// Bounds resolves the region to its tight bounding box.
	Bounds() (geometry.RectInt, error)
	// AsMask returns the mask form, or nil for boxes.
	AsMask() *Mask
}

// Box is a rectangular region in pixel coordinates.
type Box geometry.RectInt

// NewBox creates a Box from x, y, width, height.
func NewBox(x, y, width, height int) Box {
	return Box{X: x, Y: y, Width: width, Height: height}
}

// BoxFromCorners creates a Box from (x1, y1) inclusive and (x2, y2) exclusive corners.
func BoxFromCorners(x1, y1, x2, y2 int) Box {
	return Box(geometry.RectFromCorners(x1, y1, x2, y2))
}

func (b Box) Bounds() (geometry.RectInt, error) {
	r := geometry.RectInt(b)
	if r.Empty() {
		return r, fmt.Errorf("box %s: %w", r, ErrEmptyRegion)
	}
	return r, nil
}

func (b Box) AsMask() *Mask { return nil }

func (b Box) String() string { return "box" + geometry.RectInt(b).String() }

// Mask is a binary grid the same size as the image it annotates.
type Mask struct {
	width, height int
	bits          []bool
}

// NewMask allocates an all-zero mask.
func NewMask(width, height int) *Mask {
	return &Mask{width: width, height: height, bits: make([]bool, width*height)}
}

// NewMaskFromAlpha treats every non-zero alpha pixel as set.
func NewMaskFromAlpha(a *image.Alpha) *Mask {
	b := a.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			m.bits[y*m.width+x] = a.AlphaAt(b.Min.X+x, b.Min.Y+y).A != 0
		}
	}
	return m
}

// NewMaskFromRows builds a mask from rows of 0/1 values.
func NewMaskFromRows(rows [][]int) *Mask {
	if len(rows) == 0 {
		return NewMask(0, 0)
	}
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x := 0; x < m.width && x < len(row); x++ {
			m.bits[y*m.width+x] = row[x] != 0
		}
	}
	return m
}

// Size returns the mask dimensions.
func (m *Mask) Size() geometry.Size {
	return geometry.NewSize(m.width, m.height)
}

// At reports whether (x, y) is set. Out-of-range coordinates are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Set marks (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.bits[y*m.width+x] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Bounds returns the tightest box containing every set pixel. The far edges
// are exclusive, so a single set pixel yields a 1x1 box.
func (m *Mask) Bounds() (geometry.RectInt, error) {
	minX, minY := m.width, m.height
	maxX, maxY := -1, -1
	for y := 0; y < m.height; y++ {
		row := m.bits[y*m.width : (y+1)*m.width]
		for x, set := range row {
			if !set {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			maxY = y
		}
	}
	if maxX < 0 {
		return geometry.RectInt{}, fmt.Errorf("mask %s: %w", m.Size(), ErrEmptyRegion)
	}
	return geometry.RectFromCorners(minX, minY, maxX+1, maxY+1), nil
}

func (m *Mask) AsMask() *Mask { return m }

// Alpha renders the r sub-rectangle of the mask as alpha 0/255.
func (m *Mask) Alpha(r geometry.RectInt) *image.Alpha {
	out := image.NewAlpha(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			if m.At(r.X+x, r.Y+y) {
				out.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return out
}

// Rows returns the mask as rows of 0/1 values.
func (m *Mask) Rows() [][]int {
	rows := make([][]int, m.height)
	for y := range rows {
		rows[y] = make([]int, m.width)
		for x := range rows[y] {
			if m.bits[y*m.width+x] {
				rows[y][x] = 1
			}
		}
	}
	return rows
}

// Union sets every pixel set in other. Both masks must be the same size.
func (m *Mask) Union(other *Mask) error {
	if m.Size() != other.Size() {
		return fmt.Errorf("mask %s, other %s: %w", m.Size(), other.Size(), ErrOutOfBounds)
	}
	for i, b := range other.bits {
		if b {
			m.bits[i] = true
		}
	}
	return nil
}

func (m *Mask) String() string {
	return fmt.Sprintf("mask(%s, %d set)", m.Size(), m.Count())
}
