package geometry

import "math"

// Polygon is a closed outline; the last vertex connects back to the first.
type Polygon []Point2D

// PolygonFromFlat reads x0,y0,x1,y1,... coordinates as used by COCO
// segmentations. A trailing unpaired value is ignored.
func PolygonFromFlat(coords []float64) Polygon {
	p := make(Polygon, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		p = append(p, Point2D{X: coords[i], Y: coords[i+1]})
	}
	return p
}

// Bounds returns the polygon's bounding box.
func (p Polygon) Bounds() Rect {
	return BoundingBox(p)
}

// Area returns the enclosed area regardless of winding order.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	sum := 0.0
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// ClipToSize clips p to the frame [0,W]x[0,H] using Sutherland-Hodgman.
// It returns nil when less than a triangle is left.
func (p Polygon) ClipToSize(s Size) Polygon {
	if len(p) < 3 || s.Empty() {
		return nil
	}
	w, h := float64(s.Width), float64(s.Height)
	// Frame corners ordered so that the inside is left of every edge in
	// image (y-down) coordinates.
	frame := []Point2D{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}

	out := make(Polygon, len(p))
	copy(out, p)
	for i := range frame {
		if len(out) == 0 {
			return nil
		}
		out = clipByEdge(out, frame[i], frame[(i+1)%len(frame)])
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

func clipByEdge(poly Polygon, edgeStart, edgeEnd Point2D) Polygon {
	var clipped Polygon
	for i := range poly {
		current := poly[i]
		next := poly[(i+1)%len(poly)]

		currentInside := insideEdge(current, edgeStart, edgeEnd)
		nextInside := insideEdge(next, edgeStart, edgeEnd)

		switch {
		case currentInside && nextInside:
			clipped = append(clipped, current)
		case currentInside:
			clipped = append(clipped, current)
			if x, ok := intersect(current, next, edgeStart, edgeEnd); ok {
				clipped = append(clipped, x)
			}
		case nextInside:
			if x, ok := intersect(current, next, edgeStart, edgeEnd); ok {
				clipped = append(clipped, x)
			}
		}
	}
	return clipped
}

func insideEdge(p, edgeStart, edgeEnd Point2D) bool {
	return (edgeEnd.X-edgeStart.X)*(p.Y-edgeStart.Y)-
		(edgeEnd.Y-edgeStart.Y)*(p.X-edgeStart.X) >= 0
}

// intersect returns where segment p1-p2 crosses the line through e1-e2.
func intersect(p1, p2, e1, e2 Point2D) (Point2D, bool) {
	denom := (p1.X-p2.X)*(e1.Y-e2.Y) - (p1.Y-p2.Y)*(e1.X-e2.X)
	if math.Abs(denom) < 1e-10 {
		return Point2D{}, false
	}
	t := ((p1.X-e1.X)*(e1.Y-e2.Y) - (p1.Y-e1.Y)*(e1.X-e2.X)) / denom
	return Point2D{X: p1.X + t*(p2.X-p1.X), Y: p1.Y + t*(p2.Y-p1.Y)}, true
}
