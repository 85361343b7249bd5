package geo

import (
	"math"
	"testing"
)

func TestRect_Dimensions(t *testing.T) {
	r := Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	if r.Width() != 250 || r.Height() != 18 {
		t.Fatalf("unexpected dimensions: w=%v h=%v", r.Width(), r.Height())
	}
	if !r.Valid() {
		t.Fatalf("rect should be valid: %+v", r)
	}
	if (Rect{X0: 10, Y0: 10, X1: 10, Y1: 20}).Valid() {
		t.Fatal("zero-width rect should be invalid")
	}
	if (Rect{X0: 10, Y0: 20, X1: 50, Y1: 10}).Valid() {
		t.Fatal("inverted rect should be invalid")
	}
}

func TestRect_Within(t *testing.T) {
	page := Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	if !page.Within(612, 792) {
		t.Fatalf("rect should fit on a letter page: %+v", page)
	}
	if (Rect{X0: 500, Y0: 700, X1: 650, Y1: 718}).Within(612, 792) {
		t.Fatal("rect past right edge should not fit")
	}
	if (Rect{X0: -1, Y0: 0, X1: 10, Y1: 10}).Within(612, 792) {
		t.Fatal("rect with negative origin should not fit")
	}
	if (Rect{X0: 0, Y0: 780, X1: 10, Y1: 793}).Within(612, 792) {
		t.Fatal("rect past bottom edge should not fit")
	}
}

func TestRect_Geometry(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	b := Rect{X0: 50, Y0: 50, X1: 150, Y1: 150}
	c := Rect{X0: 200, Y0: 200, X1: 300, Y1: 300}

	if !a.Intersects(b) || b.Intersects(c) {
		t.Fatal("intersection check failed")
	}
	if !a.Contains(50, 50) || a.Contains(101, 50) {
		t.Fatal("containment check failed")
	}
	u := a.Union(c)
	if u.X0 != 0 || u.Y0 != 0 || u.X1 != 300 || u.Y1 != 300 {
		t.Fatalf("unexpected union: %+v", u)
	}
}

func TestNear(t *testing.T) {
	if !Near(100, 100.9, 1.0) {
		t.Fatal("values within tolerance should be near")
	}
	if Near(100, 101.1, 1.0) {
		t.Fatal("values past tolerance should not be near")
	}
	if !Near(100, 101.0, 1.0) {
		t.Fatal("tolerance bound is inclusive")
	}
}

func TestQuantize(t *testing.T) {
	if Quantize(100.4, 1.0) != 100 || Quantize(100.6, 1.0) != 101 {
		t.Fatal("quantize should round to the nearest cell")
	}
	// Non-positive tolerance falls back to 1pt.
	if Quantize(100.4, 0) != 100 {
		t.Fatal("zero tolerance should behave as 1pt")
	}
	if Quantize(50, 2.0) != 25 {
		t.Fatalf("unexpected cell for 2pt tolerance: %d", Quantize(50, 2.0))
	}
}

func TestSameRegion(t *testing.T) {
	a := Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	b := Rect{X0: 100.7, Y0: 699.4, X1: 340, Y1: 719}
	if !SameRegion(a, b, 1.0) {
		t.Fatal("origins within tolerance should match")
	}
	c := Rect{X0: 102.5, Y0: 700, X1: 350, Y1: 718}
	if SameRegion(a, c, 1.0) {
		t.Fatal("origins past tolerance should not match")
	}
}

func TestMatrix_Transform(t *testing.T) {
	m := Translate(10, 20).Multiply(Scale(2, 2))
	p := m.Transform(Point{X: 5, Y: 5})
	if p.X != 30 || p.Y != 50 {
		t.Fatalf("unexpected transform: %+v", p)
	}

	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	q := inv.Transform(p)
	if math.Abs(q.X-5) > 1e-9 || math.Abs(q.Y-5) > 1e-9 {
		t.Fatalf("round trip failed: %+v", q)
	}

	if _, err := (Matrix{0, 0, 0, 0, 0, 0}).Inverse(); err == nil {
		t.Fatal("singular matrix should not invert")
	}
}
