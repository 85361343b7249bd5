// Package geo defines the page-point coordinate space shared by every
// component of the edit engine.
//
// All rectangles are expressed in PDF points with the origin at the top-left
// corner of the page and the Y axis growing downward. Extraction output and
// edit input use this convention unconverted; the export composer is the
// single place that flips into bottom-up PDF device space.
package geo

import "math"

// Point is a location in page-point space.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in page-point space.
// A well-formed rect satisfies X0 < X1 and Y0 < Y1.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the rect.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the rect.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Valid reports whether the rect has positive area.
func (r Rect) Valid() bool { return r.X0 < r.X1 && r.Y0 < r.Y1 }

// Within reports whether the rect lies entirely inside a page of the given
// dimensions.
func (r Rect) Within(pageWidth, pageHeight float64) bool {
	return r.X0 >= 0 && r.Y0 >= 0 && r.X1 <= pageWidth && r.Y1 <= pageHeight
}

// Contains reports whether the point (x, y) lies within the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Intersects reports whether two rects overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// Union returns the smallest rect covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Near reports whether a and b differ by at most eps.
func Near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

// Quantize maps a coordinate onto the tolerance grid. Neighbouring cells can
// still hold coordinates within tolerance of each other, so key matching
// pairs Quantize with a Near check on the raw values.
func Quantize(v, eps float64) int {
	if eps <= 0 {
		eps = 1
	}
	return int(math.Round(v / eps))
}

// Key is the quantized geometric identity of an edit region: the page index
// plus the tolerance-grid cell of the rect's top-left corner.
type Key struct {
	Page int
	QX   int
	QY   int
}

// KeyOf computes the geometric key for a rect on the given page.
func KeyOf(page int, r Rect, eps float64) Key {
	return Key{Page: page, QX: Quantize(r.X0, eps), QY: Quantize(r.Y0, eps)}
}

// SameRegion reports whether two rects identify the same edit region: their
// top-left corners are within eps on both axes.
func SameRegion(a, b Rect, eps float64) bool {
	return Near(a.X0, b.X0, eps) && Near(a.Y0, b.Y0, eps)
}
