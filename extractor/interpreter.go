package extractor

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/RodrigoAbrao/editor-pdf/geo"
	"github.com/RodrigoAbrao/editor-pdf/pdf"
)

type gstate struct {
	ctm  geo.Matrix
	fill [3]float64
}

type textState struct {
	tm, tlm     geo.Matrix
	font        *fontInfo
	fontName    string
	size        float64
	leading     float64
	charSpace   float64
	wordSpace   float64
	horizScale  float64
	rise        float64
}

// interp walks one page's content stream and accumulates spans.
// Positions are tracked in PDF device space (bottom-up) and flipped
// to top-down page points when a span is flushed.
type interp struct {
	page  pdf.Page
	fonts map[pdf.Name]*fontInfo

	gs    gstate
	stack []gstate
	ts    textState

	spans []TextSpan

	// pending span accumulation
	pending   strings.Builder
	pendFont  *fontInfo
	pendName  string
	pendSize  float64
	pendColor string
	pendX0    float64
	pendX1    float64
	pendBase  float64
	hasPend   bool
}

func interpret(content []byte, page pdf.Page, fonts map[pdf.Name]*fontInfo) ([]TextSpan, error) {
	it := &interp{
		page:  page,
		fonts: fonts,
		gs:    gstate{ctm: geo.Identity()},
	}
	cr := pdf.NewContentReader(content)
	for {
		op, args, err := cr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("content stream: %w", err)
		}
		it.apply(op, args)
	}
	it.flush()
	return it.spans, nil
}

func (it *interp) apply(op string, args []pdf.Object) {
	switch op {
	case "q":
		it.stack = append(it.stack, it.gs)
	case "Q":
		if n := len(it.stack); n > 0 {
			it.gs = it.stack[n-1]
			it.stack = it.stack[:n-1]
		}
	case "cm":
		if m, ok := matrixArgs(args); ok {
			it.gs.ctm = m.Multiply(it.gs.ctm)
		}

	case "BT":
		it.ts = textState{tm: geo.Identity(), tlm: geo.Identity(), horizScale: 100}
	case "ET":
		it.flush()
	case "Tf":
		if len(args) >= 2 {
			if name, ok := args[len(args)-2].(pdf.Name); ok {
				it.ts.fontName = string(name)
				it.ts.font = it.fonts[name]
			}
			if sz, ok := pdf.Number(args[len(args)-1]); ok {
				it.ts.size = sz
			}
		}
	case "Td":
		if tx, ty, ok := twoNumbers(args); ok {
			it.moveLine(tx, ty)
		}
	case "TD":
		if tx, ty, ok := twoNumbers(args); ok {
			it.ts.leading = -ty
			it.moveLine(tx, ty)
		}
	case "Tm":
		if m, ok := matrixArgs(args); ok {
			it.ts.tlm = m
			it.ts.tm = m
			it.flush()
		}
	case "T*":
		it.moveLine(0, -it.ts.leading)
	case "TL":
		if v, ok := oneNumber(args); ok {
			it.ts.leading = v
		}
	case "Tc":
		if v, ok := oneNumber(args); ok {
			it.ts.charSpace = v
		}
	case "Tw":
		if v, ok := oneNumber(args); ok {
			it.ts.wordSpace = v
		}
	case "Tz":
		if v, ok := oneNumber(args); ok {
			it.ts.horizScale = v
		}
	case "Ts":
		if v, ok := oneNumber(args); ok {
			it.ts.rise = v
		}

	case "Tj":
		if len(args) > 0 {
			if s, ok := args[len(args)-1].(pdf.String); ok {
				it.show(s.Val)
			}
		}
	case "'":
		it.moveLine(0, -it.ts.leading)
		if len(args) > 0 {
			if s, ok := args[len(args)-1].(pdf.String); ok {
				it.show(s.Val)
			}
		}
	case "\"":
		if len(args) >= 3 {
			if aw, ok := pdf.Number(args[len(args)-3]); ok {
				it.ts.wordSpace = aw
			}
			if ac, ok := pdf.Number(args[len(args)-2]); ok {
				it.ts.charSpace = ac
			}
			it.moveLine(0, -it.ts.leading)
			if s, ok := args[len(args)-1].(pdf.String); ok {
				it.show(s.Val)
			}
		}
	case "TJ":
		arr, ok := argAsArray(args)
		if !ok {
			return
		}
		for _, item := range arr {
			switch v := item.(type) {
			case pdf.String:
				it.show(v.Val)
			default:
				if n, ok := pdf.Number(v); ok {
					tx := -n / 1000 * it.ts.size * it.ts.horizScale / 100
					it.ts.tm = geo.Translate(tx, 0).Multiply(it.ts.tm)
				}
			}
		}

	case "g":
		if v, ok := oneNumber(args); ok {
			it.gs.fill = [3]float64{v, v, v}
		}
	case "rg":
		if len(args) >= 3 {
			var c [3]float64
			ok := true
			for i := 0; i < 3; i++ {
				c[i], ok = pdf.Number(args[len(args)-3+i])
				if !ok {
					break
				}
			}
			if ok {
				it.gs.fill = c
			}
		}
	case "k":
		if len(args) >= 4 {
			var v [4]float64
			ok := true
			for i := 0; i < 4; i++ {
				v[i], ok = pdf.Number(args[len(args)-4+i])
				if !ok {
					break
				}
			}
			if ok {
				it.gs.fill = [3]float64{
					(1 - v[0]) * (1 - v[3]),
					(1 - v[1]) * (1 - v[3]),
					(1 - v[2]) * (1 - v[3]),
				}
			}
		}
	case "sc", "scn":
		// Component count decides the color space.
		var nums []float64
		for _, a := range args {
			if n, ok := pdf.Number(a); ok {
				nums = append(nums, n)
			}
		}
		switch len(nums) {
		case 1:
			it.gs.fill = [3]float64{nums[0], nums[0], nums[0]}
		case 3:
			it.gs.fill = [3]float64{nums[0], nums[1], nums[2]}
		case 4:
			it.gs.fill = [3]float64{
				(1 - nums[0]) * (1 - nums[3]),
				(1 - nums[1]) * (1 - nums[3]),
				(1 - nums[2]) * (1 - nums[3]),
			}
		}
	}
}

// moveLine implements Td: translate the line matrix and restart the
// text matrix from it. A vertical move ends the current span.
func (it *interp) moveLine(tx, ty float64) {
	it.ts.tlm = geo.Translate(tx, ty).Multiply(it.ts.tlm)
	it.ts.tm = it.ts.tlm
	it.flush()
}

// show renders one string operand: decode it, advance the text
// matrix per glyph, and extend or start the pending span.
func (it *interp) show(data []byte) {
	if it.ts.font == nil || it.ts.size == 0 || len(data) == 0 {
		return
	}
	font := it.ts.font
	text, codes := font.decode(data)

	trm := it.ts.tm.Multiply(it.gs.ctm)
	start := trm.Transform(geo.Point{X: 0, Y: it.ts.rise})
	scale := math.Hypot(trm[2], trm[3])
	effSize := it.ts.size * scale

	var advance float64
	for _, code := range codes {
		w := font.width(code)/1000*it.ts.size + it.ts.charSpace
		if !font.twoByte && code == 32 {
			w += it.ts.wordSpace
		}
		advance += w * it.ts.horizScale / 100
	}
	it.ts.tm = geo.Translate(advance, 0).Multiply(it.ts.tm)
	end := it.ts.tm.Multiply(it.gs.ctm).Transform(geo.Point{X: 0, Y: it.ts.rise})

	color := hexColor(it.gs.fill)
	if it.hasPend {
		sameRun := it.pendFont == font &&
			math.Abs(it.pendSize-effSize) < 0.01 &&
			it.pendColor == color &&
			math.Abs(it.pendBase-start.Y) < 0.1 &&
			start.X-it.pendX1 < 0.25*effSize &&
			start.X >= it.pendX1-0.25*effSize
		if !sameRun {
			it.flush()
		}
	}
	if !it.hasPend {
		it.hasPend = true
		it.pendFont = font
		it.pendName = font.baseName
		it.pendSize = effSize
		it.pendColor = color
		it.pendX0 = start.X
		it.pendBase = start.Y
		it.pending.Reset()
	}
	it.pending.WriteString(text)
	it.pendX1 = end.X
}

// flush converts the pending run into a span in top-down coordinates.
func (it *interp) flush() {
	if !it.hasPend {
		return
	}
	it.hasPend = false
	text := strings.TrimSpace(it.pending.String())
	it.pending.Reset()
	if text == "" {
		return
	}
	font := it.pendFont
	top := it.pendBase + font.ascent/1000*it.pendSize
	bottom := it.pendBase + font.descent/1000*it.pendSize
	it.spans = append(it.spans, TextSpan{
		Text:  text,
		Font:  it.pendName,
		Size:  math.Round(it.pendSize*100) / 100,
		Color: it.pendColor,
		Flags: font.flags,
		Rect: geo.Rect{
			X0: it.pendX0,
			Y0: it.page.Height - top,
			X1: it.pendX1,
			Y1: it.page.Height - bottom,
		},
	})
}

func hexColor(c [3]float64) string {
	clamp := func(v float64) int {
		n := int(math.Round(v * 255))
		if n < 0 {
			return 0
		}
		if n > 255 {
			return 255
		}
		return n
	}
	return fmt.Sprintf("#%02X%02X%02X", clamp(c[0]), clamp(c[1]), clamp(c[2]))
}

func matrixArgs(args []pdf.Object) (geo.Matrix, bool) {
	if len(args) < 6 {
		return geo.Matrix{}, false
	}
	var m geo.Matrix
	for i := 0; i < 6; i++ {
		v, ok := pdf.Number(args[len(args)-6+i])
		if !ok {
			return geo.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func twoNumbers(args []pdf.Object) (float64, float64, bool) {
	if len(args) < 2 {
		return 0, 0, false
	}
	a, ok1 := pdf.Number(args[len(args)-2])
	b, ok2 := pdf.Number(args[len(args)-1])
	return a, b, ok1 && ok2
}

func oneNumber(args []pdf.Object) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	return pdf.Number(args[len(args)-1])
}

func argAsArray(args []pdf.Object) (pdf.Array, bool) {
	if len(args) == 0 {
		return nil, false
	}
	arr, ok := args[len(args)-1].(pdf.Array)
	return arr, ok
}
