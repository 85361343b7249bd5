package overlay

import (
	"math"
	"strings"
	"testing"

	"github.com/RodrigoAbrao/editor-pdf/fontkit"
	"github.com/RodrigoAbrao/editor-pdf/geo"
)

// fixedFont gives every rune the same advance so layout arithmetic is
// exact: width = 0.5 * size per rune.
type fixedFont struct{}

func (fixedFont) Measure(text string, size float64) float64 {
	return 0.5 * size * float64(len([]rune(text)))
}
func (fixedFont) LineHeight(size float64) float64 { return 1.2 * size }
func (fixedFont) Ascent(size float64) float64     { return 0.8 * size }

func edit(page int, r geo.Rect, text string) EditOperation {
	return EditOperation{
		Page: page, Rect: r,
		NewText: text, Font: "helv", FontSize: 11, Color: "#000000",
	}
}

func TestEditSet_ReplaceWithinTolerance(t *testing.T) {
	s := NewEditSet(1)
	s.Put(edit(0, geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}, "Bonjour Monde"))
	s.Put(edit(0, geo.Rect{X0: 100.4, Y0: 699.7, X1: 350, Y1: 718}, "Salut"))

	if s.Len() != 1 {
		t.Fatalf("expected one edit after replace, got %d", s.Len())
	}
	ops := s.Ops()
	if ops[0].NewText != "Salut" {
		t.Fatalf("last submission should win, got %q", ops[0].NewText)
	}
}

func TestEditSet_DistinctRegionsAccumulate(t *testing.T) {
	s := NewEditSet(1)
	s.Put(edit(0, geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}, "a"))
	s.Put(edit(0, geo.Rect{X0: 100, Y0: 650, X1: 350, Y1: 668}, "b"))
	s.Put(edit(1, geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}, "c"))

	if s.Len() != 3 {
		t.Fatalf("expected three edits, got %d", s.Len())
	}
	byPage := s.ByPage()
	if len(byPage[0]) != 2 || len(byPage[1]) != 1 {
		t.Fatalf("unexpected page grouping: %v", byPage)
	}
}

func TestEditSet_ReplaceMovesToEnd(t *testing.T) {
	s := NewEditSet(1)
	a := geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	b := geo.Rect{X0: 100, Y0: 600, X1: 350, Y1: 618}
	s.Put(edit(0, a, "first"))
	s.Put(edit(0, b, "second"))
	s.Put(edit(0, a, "first again"))

	ops := s.Ops()
	if len(ops) != 2 || ops[0].NewText != "second" || ops[1].NewText != "first again" {
		t.Fatalf("unexpected order: %+v", ops)
	}
}

func TestEditSet_Match(t *testing.T) {
	s := NewEditSet(1)
	r := geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	s.Put(edit(0, r, "x"))

	if _, ok := s.Match(0, geo.Rect{X0: 100.9, Y0: 700.9, X1: 300, Y1: 720}); !ok {
		t.Fatal("expected match within tolerance")
	}
	if _, ok := s.Match(0, geo.Rect{X0: 105, Y0: 700, X1: 300, Y1: 720}); ok {
		t.Fatal("expected no match outside tolerance")
	}
	if _, ok := s.Match(1, r); ok {
		t.Fatal("expected no match on other page")
	}
}

func TestLayout_FitsAtRequestedSize(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	rect := geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	ov := r.Layout(edit(0, rect, "ten runes!"), fixedFont{})

	if ov.Block.Size != 11 {
		t.Fatalf("expected requested size, got %v", ov.Block.Size)
	}
	if len(ov.Block.Lines) != 1 || ov.Block.Truncated {
		t.Fatalf("unexpected block: %+v", ov.Block)
	}
	line := ov.Block.Lines[0]
	if line.X != 100 {
		t.Fatalf("left align should start at x0, got %v", line.X)
	}
	if math.Abs(line.Baseline-(700+0.8*11)) > 1e-9 {
		t.Fatalf("unexpected baseline: %v", line.Baseline)
	}
	if ov.Cover != rect || ov.Fill != "#FFFFFF" {
		t.Fatalf("unexpected cover: %+v", ov)
	}
}

func TestLayout_ShrinksToFit(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	// 20 runes at size s measure 10*s; fits 80pt at s <= 8.
	rect := geo.Rect{X0: 0, Y0: 0, X1: 80, Y1: 20}
	ov := r.Layout(edit(0, rect, strings.Repeat("x", 20)), fixedFont{})

	if ov.Block.Size != 8 {
		t.Fatalf("expected size 8, got %v", ov.Block.Size)
	}
	if ov.Block.Truncated {
		t.Fatal("fitting text should not be truncated")
	}
}

func TestLayout_ShrinksForRectHeight(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	// A 10pt-tall rect holds a line only below 1.2*size = 10, so the
	// requested 30pt must shrink even though the text is narrow.
	rect := geo.Rect{X0: 100, Y0: 100, X1: 200, Y1: 110}
	op := edit(0, rect, "Hi")
	op.FontSize = 30
	ov := r.Layout(op, fixedFont{})

	if ov.Block.Size != 8 {
		t.Fatalf("expected size 8, got %v", ov.Block.Size)
	}
	if (fixedFont{}).LineHeight(ov.Block.Size) > rect.Height() {
		t.Fatalf("line height still overflows the rect at size %v", ov.Block.Size)
	}
	line := ov.Block.Lines[0]
	if line.Baseline > rect.Y1 {
		t.Fatalf("baseline left the rect: %v > %v", line.Baseline, rect.Y1)
	}
}

func TestLayout_TruncatesAtFloor(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	// 40 runes need 120pt even at the 6pt floor; only 60pt available.
	rect := geo.Rect{X0: 0, Y0: 0, X1: 60, Y1: 20}
	ov := r.Layout(edit(0, rect, strings.Repeat("x", 40)), fixedFont{})

	if ov.Block.Size != 6 {
		t.Fatalf("expected floor size, got %v", ov.Block.Size)
	}
	if !ov.Block.Truncated {
		t.Fatal("expected truncation marker")
	}
	line := ov.Block.Lines[0].Text
	if !strings.HasSuffix(line, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", line)
	}
	if (fixedFont{}).Measure(line, 6) > rect.Width() {
		t.Fatalf("truncated line still overflows: %q", line)
	}
}

func TestLayout_AutoFitMonotonic(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	font := fontkit.Helvetica()
	prev := math.Inf(1)
	for _, width := range []float64{250, 150, 100, 60, 30} {
		rect := geo.Rect{X0: 0, Y0: 0, X1: width, Y1: 18}
		ov := r.Layout(edit(0, rect, "Bonjour Monde"), font)
		if ov.Block.Size > prev {
			t.Fatalf("size grew as width shrank: width %v chose %v after %v", width, ov.Block.Size, prev)
		}
		prev = ov.Block.Size
	}
}

func TestLayout_WrapGreedy(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	// Each word is 2 runes = 10pt at size 10; "aa bb" = 25pt.
	rect := geo.Rect{X0: 0, Y0: 0, X1: 26, Y1: 30}
	op := edit(0, rect, "aa bb cc dd")
	op.FontSize = 10
	op.Wrap = true
	ov := r.Layout(op, fixedFont{})

	if len(ov.Block.Lines) != 2 {
		t.Fatalf("expected two lines, got %+v", ov.Block.Lines)
	}
	if ov.Block.Lines[0].Text != "aa bb" || ov.Block.Lines[1].Text != "cc dd" {
		t.Fatalf("unexpected wrap: %+v", ov.Block.Lines)
	}
	if ov.Block.Lines[1].Baseline <= ov.Block.Lines[0].Baseline {
		t.Fatalf("baselines should stack downward: %+v", ov.Block.Lines)
	}
}

func TestLayout_WrapShrinksForHeight(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	// Three lines at size 10 need 36pt of height; only 26pt available.
	rect := geo.Rect{X0: 0, Y0: 0, X1: 26, Y1: 26}
	op := edit(0, rect, "aa bb cc dd ee ff")
	op.FontSize = 10
	op.Wrap = true
	ov := r.Layout(op, fixedFont{})

	if ov.Block.Size >= 10 {
		t.Fatalf("expected shrink below requested size, got %v", ov.Block.Size)
	}
	total := float64(len(ov.Block.Lines)) * (fixedFont{}).LineHeight(ov.Block.Size)
	if !ov.Block.Truncated && total > rect.Height() {
		t.Fatalf("wrapped block overflows height: %v > %v", total, rect.Height())
	}
}

func TestLayout_Alignment(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	rect := geo.Rect{X0: 100, Y0: 0, X1: 200, Y1: 20}
	// "abcd" at size 10 measures 20pt.
	base := edit(0, rect, "abcd")
	base.FontSize = 10

	center := base
	center.Align = AlignCenter
	if got := r.Layout(center, fixedFont{}).Block.Lines[0].X; math.Abs(got-140) > 1e-9 {
		t.Fatalf("center: got x %v", got)
	}
	right := base
	right.Align = AlignRight
	if got := r.Layout(right, fixedFont{}).Block.Lines[0].X; math.Abs(got-180) > 1e-9 {
		t.Fatalf("right: got x %v", got)
	}
	if got := r.Layout(base, fixedFont{}).Block.Lines[0].X; got != 100 {
		t.Fatalf("left: got x %v", got)
	}
}

func TestLayout_HelveticaScenario(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	rect := geo.Rect{X0: 100, Y0: 700, X1: 350, Y1: 718}
	ov := r.Layout(edit(0, rect, "Bonjour Monde"), fontkit.Helvetica())

	if ov.Block.Size > 11 {
		t.Fatalf("size must not exceed request: %v", ov.Block.Size)
	}
	if len(ov.Block.Lines) != 1 || ov.Block.Truncated {
		t.Fatalf("unexpected block: %+v", ov.Block)
	}
	w := fontkit.Helvetica().Measure(ov.Block.Lines[0].Text, ov.Block.Size)
	if w > rect.Width() {
		t.Fatalf("laid-out text overflows rect: %v > %v", w, rect.Width())
	}
}
