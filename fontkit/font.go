// Package fontkit manages the fonts available for overlay rendering:
// loading and validating TrueType/OpenType files, resolving requested
// names through family matching down to a built-in fallback, measuring
// text, and embedding used fonts into a PDF.
package fontkit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FontLoadError reports a font file that could not be parsed or
// validated. Resolution never returns it; only registration does.
type FontLoadError struct {
	Name   string
	Reason string
	Err    error
}

func (e *FontLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("font %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("font %q: %s", e.Name, e.Reason)
}

func (e *FontLoadError) Unwrap() error { return e.Err }

// Metrics are vertical font metrics in thousandths of an em.
type Metrics struct {
	Ascent    float64
	Descent   float64 // negative, below the baseline
	CapHeight float64
}

// Font is an immutable, ready-to-measure font. Embedded fonts carry
// the full file; the built-in fallback carries only a width table.
type Font struct {
	Name       string // name it was registered under
	PostScript string
	Family     string
	Metrics    Metrics
	Builtin    bool

	data        []byte
	sfnt        *sfnt.Font
	face        *gofont.Face
	upem        float64
	bbox        [4]float64
	italicAngle float64
	widths      map[sfnt.GlyphIndex]float64 // thousandths
	builtin     map[rune]float64            // fallback width table, thousandths
}

// Load parses and validates a TrueType/OpenType font. Both parsers
// must accept the file: sfnt supplies metrics, typesetting shapes it.
func Load(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, &FontLoadError{Name: name, Reason: "empty font data"}
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, &FontLoadError{Name: name, Reason: "not a valid TrueType/OpenType file", Err: err}
	}
	upem := parsed.UnitsPerEm()
	if upem == 0 {
		return nil, &FontLoadError{Name: name, Reason: "font has zero unitsPerEm"}
	}
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, &FontLoadError{Name: name, Reason: "font cannot be shaped", Err: err}
	}

	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(int32(upem) << 6)

	f := &Font{
		Name: name,
		data: data,
		sfnt: parsed,
		face: face,
		upem: float64(upem),
	}
	if ps, _ := parsed.Name(buf, sfnt.NameIDPostScript); ps != "" {
		f.PostScript = ps
	} else {
		f.PostScript = sanitizePostScriptName(name)
	}
	if fam, _ := parsed.Name(buf, sfnt.NameIDFamily); fam != "" {
		f.Family = fam
	} else {
		f.Family = FamilyOf(name)
	}

	metrics, err := parsed.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, &FontLoadError{Name: name, Reason: "font metrics unreadable", Err: err}
	}
	f.Metrics = Metrics{
		Ascent:    f.scaleUnits(metrics.Ascent),
		Descent:   -f.scaleUnits(metrics.Descent),
		CapHeight: f.scaleUnits(metrics.CapHeight),
	}
	if f.Metrics.CapHeight <= 0 {
		f.Metrics.CapHeight = f.Metrics.Ascent
	}
	if bounds, err := parsed.Bounds(buf, ppem, xfont.HintingNone); err == nil {
		f.bbox = [4]float64{
			f.scaleUnits(bounds.Min.X),
			f.scaleUnits(bounds.Min.Y),
			f.scaleUnits(bounds.Max.X),
			f.scaleUnits(bounds.Max.Y),
		}
	}
	if post := parsed.PostTable(); post != nil {
		f.italicAngle = post.ItalicAngle
	}

	f.widths = make(map[sfnt.GlyphIndex]float64, parsed.NumGlyphs())
	for i := 0; i < parsed.NumGlyphs(); i++ {
		adv, err := parsed.GlyphAdvance(buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		f.widths[sfnt.GlyphIndex(i)] = f.scaleUnits(adv)
	}
	return f, nil
}

func (f *Font) scaleUnits(val fixed.Int26_6) float64 {
	return float64(val) * 1000.0 / (64.0 * f.upem)
}

// Data returns the raw font file, nil for the built-in fallback.
func (f *Font) Data() []byte { return f.data }

// Measure returns the advance width of text at the given size in
// points. Embedded fonts are shaped so kerning and ligatures match
// what rendering will produce; the fallback sums its width table.
func (f *Font) Measure(text string, size float64) float64 {
	if f.Builtin {
		var units float64
		for _, r := range text {
			units += f.builtinWidth(r)
		}
		return units * size / 1000.0
	}
	var units float64
	for _, g := range f.shape(text) {
		units += float64(g.XAdvance) / 64.0
	}
	return units * size / 1000.0
}

// LineHeight returns the default baseline-to-baseline distance.
func (f *Font) LineHeight(size float64) float64 {
	h := (f.Metrics.Ascent - f.Metrics.Descent) * size / 1000.0
	if h <= 0 {
		return size * 1.2
	}
	return h
}

// Ascent returns the scaled ascent in points.
func (f *Font) Ascent(size float64) float64 { return f.Metrics.Ascent * size / 1000.0 }

// shape runs the text through harfbuzz at 1000 units per em, so glyph
// advances come back in thousandths.
func (f *Font) shape(text string) []shaping.Glyph {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	shaper := &shaping.HarfbuzzShaper{}
	out := shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      f.face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    language.Latin,
		Language:  language.DefaultLanguage(),
	})
	return out.Glyphs
}

func (f *Font) builtinWidth(r rune) float64 {
	if w, ok := f.builtin[r]; ok {
		return w
	}
	// Unknown runes render as the WinAnsi fallback question mark.
	return f.builtin['?']
}

func (f *Font) glyphWidth(g sfnt.GlyphIndex) float64 {
	if w, ok := f.widths[g]; ok {
		return w
	}
	return 0
}

func sanitizePostScriptName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r > 0x20 && r < 0x7f && !strings.ContainsRune("()<>[]{}/%#", r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "EmbeddedFont"
	}
	return b.String()
}

// FamilyOf derives the family part of a conventional font name, the
// portion before the style suffix: "Roboto-Bold" yields "Roboto".
func FamilyOf(name string) string {
	name = StripSubsetPrefix(name)
	if i := strings.IndexAny(name, "-,"); i > 0 {
		return name[:i]
	}
	if fields := strings.Fields(name); len(fields) > 1 {
		if isStyleWord(fields[len(fields)-1]) {
			return strings.Join(fields[:len(fields)-1], " ")
		}
	}
	return name
}

func isStyleWord(w string) bool {
	switch strings.ToLower(w) {
	case "regular", "bold", "italic", "oblique", "light", "medium",
		"semibold", "black", "thin", "bolditalic", "book":
		return true
	}
	return false
}

