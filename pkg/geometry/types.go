// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size represents integer pixel dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height int) Size {
	return Size{Width: width, Height: height}
}

// Empty returns true if either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Area returns width * height.
func (s Size) Area() int {
	return s.Width * s.Height
}

// AspectRatio returns width / height, or 0 for an empty size.
func (s Size) AspectRatio() float64 {
	if s.Height <= 0 {
		return 0
	}
	return float64(s.Width) / float64(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// SizeOf returns the dimensions of an image rectangle.
func SizeOf(r image.Rectangle) Size {
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// RectInt represents a rectangle with integer coordinates (x, y, width, height).
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// RectFromCorners creates a RectInt from (x1, y1) inclusive and (x2, y2) exclusive corners.
func RectFromCorners(x1, y1, x2, y2 int) RectInt {
	return RectInt{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// RectFromImage converts an image.Rectangle.
func RectFromImage(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ImageRect converts to an image.Rectangle.
func (r RectInt) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Size returns the rectangle's dimensions.
func (r RectInt) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Empty returns true if the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Within returns true if the rectangle lies fully inside bounds.
func (r RectInt) Within(bounds Size) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= bounds.Width && r.Y+r.Height <= bounds.Height
}

// Right returns the exclusive right edge.
func (r RectInt) Right() int {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge.
func (r RectInt) Bottom() int {
	return r.Y + r.Height
}

func (r RectInt) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Round snaps the rectangle to the pixel grid. The origin is floored and the
// far corner is ceiled so the result covers every touched pixel.
func (r Rect) Round() RectInt {
	x1 := int(math.Floor(r.X))
	y1 := int(math.Floor(r.Y))
	x2 := int(math.Ceil(r.X + r.Width))
	y2 := int(math.Ceil(r.Y + r.Height))
	return RectFromCorners(x1, y1, x2, y2)
}

// Placement is a destination top-left plus the scaled size of the pasted content.
type Placement struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the placement as a RectInt.
func (p Placement) Rect() RectInt {
	return RectInt{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// Contained returns true if the placement lies fully inside dest.
func (p Placement) Contained(dest Size) bool {
	return p.Rect().Within(dest)
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
